package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/overdrive-recruitment/recruit-pilot/internal/logger"
	"github.com/overdrive-recruitment/recruit-pilot/internal/outreach"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var errPublishDeclined = errors.New("publish declined")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the outreach funnel once over the configured postings file",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("auto-aprove", "y", false, "do not ask for confirmation before publishing the report")
	runCmd.Flags().StringP("output-dir", "o", "", "directory for the daily report file")

	viper.BindPFlag("output-dir", runCmd.Flags().Lookup("output-dir"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	zl, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		zl.Fatal("getting a config", zap.Error(err))
	}

	zl.Info("starting the recruit-pilot", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	zl.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil {
		zl.Fatal("config is required")
	}

	outputDir := viper.GetString("output-dir")
	if outputDir == "" {
		outputDir = config.OutputDir
	}
	if outputDir == "" {
		outputDir = defaultOutputDir
	}

	publisher := outreach.Publisher(outreach.NewFilePublisher(outputDir))
	if cmd.Flag("auto-aprove").Value.String() == "false" {
		publisher = &confirmingPublisher{next: publisher, logger: zl}
	}

	funnel, cleanup, err := buildFunnel(ctx, config, publisher, zl)
	if err != nil {
		zl.Fatal("building the funnel", zap.Error(err))
	}
	defer cleanup()

	summary, err := funnel.Run(ctx)
	if err != nil {
		if errors.Is(err, errPublishDeclined) {
			zl.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
		zl.Fatal("funnel run failed", zap.Error(err))
	}

	zl.Info("funnel run finished",
		zap.Int("postings", summary.Postings),
		zap.Int("contacts_resolved", summary.ContactsResolved),
		zap.Int("matches_found", summary.MatchesFound),
		zap.Int("skipped", summary.Skipped),
		zap.String("output_dir", outputDir),
	)
}

// confirmingPublisher shows the report summary and asks before handing the
// reports to the wrapped publisher.
type confirmingPublisher struct {
	next   outreach.Publisher
	logger *zap.Logger
}

func (p *confirmingPublisher) Publish(ctx context.Context, reports []*outreach.Report) error {
	p.logger.Info("reports ready for publishing", zap.Int("count", len(reports)))

	for _, report := range reports {
		contact := "no decision maker"
		if report.Contact != nil {
			contact = fmt.Sprintf("%s (%s)", report.Contact.Name, report.Contact.Title)
		}
		p.logger.Info("report",
			zap.String("company", report.Job.CompanyName),
			zap.String("job_link", report.Job.Link),
			zap.String("contact", contact),
			zap.Int("matches", len(report.Matches)),
		)
	}

	prompt := promptui.Select{
		Label: "Publish the daily report?",
		Items: []string{PromptYes, PromptNo},
	}

	_, action, err := prompt.Run()
	if err != nil {
		return err
	}
	if action != PromptYes {
		return errPublishDeclined
	}

	return p.next.Publish(ctx, reports)
}
