package decorator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/reviewsync/internal/analysis"
	"github.com/temirov/reviewsync/internal/gerrit"
	"github.com/temirov/reviewsync/internal/utils/flags"
)

const (
	decorateCommandUseConstant              = "decorate"
	decorateCommandShortDescriptionConstant = "Publish an analysis report as a review"
	decorateCommandLongDescriptionConstant  = "decorate reads an analysis report, comments its issues on the files changed by the configured revision, and votes on the configured label."
	filesCommandUseConstant                 = "files"
	filesCommandShortDescriptionConstant    = "List the reviewable files of the configured revision"
	filesCommandLongDescriptionConstant     = "files prints the paths changed by the configured revision, excluding deleted files and pseudo-files."
	decorateUnexpectedArgumentsConstant     = "decorate does not accept positional arguments"
	filesUnexpectedArgumentsConstant        = "files does not accept positional arguments"
	reportRequiredMessageConstant           = "an analysis report is required (use --report)"
	reportLoadErrorTemplateConstant         = "unable to load analysis report: %w"
	filesCommandErrorTemplateConstant       = "listing changed files failed: %w"
	reportFlagNameConstant                  = "report"
	reportFlagDescriptionConstant           = "Path to the analysis report (YAML or JSON)"
	changeFlagNameConstant                  = "change"
	changeFlagDescriptionConstant           = "Change number or identifier to review"
	revisionFlagNameConstant                = "revision"
	revisionFlagDescriptionConstant         = "Revision (patch set commit) to review"
	schemeFlagNameConstant                  = "scheme"
	schemeFlagDescriptionConstant           = "Protocol used to reach the review backend"
	newIssuesOnlyFlagNameConstant           = "new-issues-only"
	newIssuesOnlyFlagDescriptionConstant    = "Comment only issues introduced by the change"
	dryRunFlagNameConstant                  = "dry-run"
	dryRunFlagDescriptionConstant           = "Print the review payload instead of submitting it"
	outcomeSummaryTemplateConstant          = "%s: %d comment(s) on %d file(s), %s=%+d\n"
	outcomeAbortedTemplateConstant          = "%s: %v\n"
	dryRunPayloadTemplateConstant           = "%s\n"
	changedFileTemplateConstant             = "%s\n"
	logMessageDryRunConstant                = "Dry run, review not submitted"
)

var (
	errDecorateUnexpectedArguments = errors.New(decorateUnexpectedArgumentsConstant)
	errFilesUnexpectedArguments    = errors.New(filesUnexpectedArgumentsConstant)
	errReportRequired              = errors.New(reportRequiredMessageConstant)
	schemeChoices                  = []string{string(gerrit.SchemeHTTPS), string(gerrit.SchemeHTTP), string(gerrit.SchemeSSH)}
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandConfiguration bundles the backend and review policy settings.
type CommandConfiguration struct {
	Gerrit gerrit.Configuration
	Review Configuration
}

// DefaultCommandConfiguration returns the defaults of both sections.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{Gerrit: gerrit.DefaultConfiguration(), Review: DefaultConfiguration()}
}

// ConfigurationProvider returns the current command configuration.
type ConfigurationProvider func() CommandConfiguration

// TransportBuilder constructs the transport for the configured backend.
type TransportBuilder func(configuration gerrit.Configuration, logger *zap.Logger) (gerrit.Transport, error)

// CommandBuilder assembles the decorate command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	TransportBuilder      TransportBuilder
}

// Build constructs the decorate command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   decorateCommandUseConstant,
		Short: decorateCommandShortDescriptionConstant,
		Long:  decorateCommandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().String(reportFlagNameConstant, "", reportFlagDescriptionConstant)
	addBackendFlags(command)
	var newIssuesOnly bool
	flags.AddToggleFlag(command.Flags(), &newIssuesOnly, newIssuesOnlyFlagNameConstant, false, newIssuesOnlyFlagDescriptionConstant)
	command.Flags().Bool(dryRunFlagNameConstant, false, dryRunFlagDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errDecorateUnexpectedArguments
	}

	configuration, optionsError := builder.parseOptions(command)
	if optionsError != nil {
		return optionsError
	}

	reportPath, _ := command.Flags().GetString(reportFlagNameConstant)
	reportPath = strings.TrimSpace(reportPath)
	if len(reportPath) == 0 {
		return errReportRequired
	}
	projectAnalysis, loadError := analysis.LoadReportFile(reportPath)
	if loadError != nil {
		return fmt.Errorf(reportLoadErrorTemplateConstant, loadError)
	}

	logger := builder.resolveLogger()
	dryRun, _ := command.Flags().GetBool(dryRunFlagNameConstant)
	provider := builder.backendProvider(configuration.Gerrit, logger, dryRun, command.OutOrStdout())
	decorator, decoratorError := NewDecorator(configuration.Review, provider, logger)
	if decoratorError != nil {
		return decoratorError
	}

	outcome := decorator.Decorate(command.Context(), projectAnalysis)
	writeOutcome(command.OutOrStdout(), outcome)
	return nil
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command) (CommandConfiguration, error) {
	configuration := resolveConfiguration(builder.ConfigurationProvider)
	configuration.Gerrit = applyBackendFlags(command, configuration.Gerrit)

	if command.Flags().Changed(newIssuesOnlyFlagNameConstant) {
		rawValue := command.Flags().Lookup(newIssuesOnlyFlagNameConstant).Value.String()
		newIssuesOnly, parseError := flags.ParseToggle(rawValue)
		if parseError != nil {
			return CommandConfiguration{}, parseError
		}
		configuration.Review.NewIssuesOnly = newIssuesOnly
	}

	return configuration, nil
}

func (builder *CommandBuilder) backendProvider(configuration gerrit.Configuration, logger *zap.Logger, dryRun bool, output io.Writer) BackendProvider {
	return func() (ReviewBackend, error) {
		transport, transportError := resolveTransportBuilder(builder.TransportBuilder)(configuration, logger)
		if transportError != nil {
			return nil, transportError
		}
		facade := gerrit.NewReviewFacade(transport, logger)
		if dryRun {
			return &dryRunBackend{ReviewFacade: facade, output: output, logger: logger}, nil
		}
		return facade, nil
	}
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	return resolveLogger(builder.LoggerProvider)
}

// FilesCommandBuilder assembles the files command.
type FilesCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	TransportBuilder      TransportBuilder
}

// Build constructs the files command.
func (builder *FilesCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   filesCommandUseConstant,
		Short: filesCommandShortDescriptionConstant,
		Long:  filesCommandLongDescriptionConstant,
		RunE:  builder.run,
	}

	addBackendFlags(command)

	return command, nil
}

func (builder *FilesCommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errFilesUnexpectedArguments
	}

	configuration := resolveConfiguration(builder.ConfigurationProvider)
	backendConfiguration := applyBackendFlags(command, configuration.Gerrit)

	logger := resolveLogger(builder.LoggerProvider)
	transport, transportError := resolveTransportBuilder(builder.TransportBuilder)(backendConfiguration, logger)
	if transportError != nil {
		return fmt.Errorf(filesCommandErrorTemplateConstant, transportError)
	}

	changedFiles, listError := gerrit.NewReviewFacade(transport, logger).ListChangedFiles(command.Context())
	if listError != nil {
		return fmt.Errorf(filesCommandErrorTemplateConstant, listError)
	}

	for _, path := range changedFiles.Paths() {
		fmt.Fprintf(command.OutOrStdout(), changedFileTemplateConstant, path)
	}
	return nil
}

type dryRunBackend struct {
	*gerrit.ReviewFacade
	output io.Writer
	logger *zap.Logger
}

func (backend *dryRunBackend) SubmitReview(executionContext context.Context, document *gerrit.ReviewDocument) error {
	payload, encodeError := gerrit.EncodeReview(document)
	if encodeError != nil {
		return gerrit.DomainError{Stage: gerrit.DomainStageFormat, Cause: encodeError}
	}
	backend.logger.Info(logMessageDryRunConstant)
	fmt.Fprintf(backend.output, dryRunPayloadTemplateConstant, payload)
	return nil
}

func addBackendFlags(command *cobra.Command) {
	command.Flags().String(changeFlagNameConstant, "", changeFlagDescriptionConstant)
	command.Flags().String(revisionFlagNameConstant, "", revisionFlagDescriptionConstant)
	var scheme string
	flags.AddChoiceFlag(command.Flags(), &scheme, schemeFlagNameConstant, string(gerrit.SchemeHTTPS), schemeChoices, schemeFlagDescriptionConstant)
}

func applyBackendFlags(command *cobra.Command, configuration gerrit.Configuration) gerrit.Configuration {
	updated := configuration
	if command.Flags().Changed(changeFlagNameConstant) {
		updated.Change, _ = command.Flags().GetString(changeFlagNameConstant)
	}
	if command.Flags().Changed(revisionFlagNameConstant) {
		updated.Revision, _ = command.Flags().GetString(revisionFlagNameConstant)
	}
	if command.Flags().Changed(schemeFlagNameConstant) {
		updated.Scheme = command.Flags().Lookup(schemeFlagNameConstant).Value.String()
	}
	return updated
}

func writeOutcome(output io.Writer, outcome Outcome) {
	if outcome.State == StateAborted {
		fmt.Fprintf(output, outcomeAbortedTemplateConstant, outcome.State, outcome.Cause)
		return
	}
	fmt.Fprintf(output, outcomeSummaryTemplateConstant, outcome.State, outcome.Comments, outcome.Files, outcome.Label, outcome.Vote)
}

func resolveConfiguration(provider ConfigurationProvider) CommandConfiguration {
	if provider == nil {
		return DefaultCommandConfiguration()
	}
	return provider()
}

func resolveTransportBuilder(builder TransportBuilder) TransportBuilder {
	if builder == nil {
		return gerrit.NewTransport
	}
	return builder
}

func resolveLogger(provider LoggerProvider) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}

	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}

	return logger
}
