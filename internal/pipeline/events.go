package pipeline

// Event log modules.
const (
	ModuleCLI      = "cli"
	ModuleCleaner  = "cleaner"
	ModuleAnalyzer = "analyzer"
	ModuleAIClient = "ai_client"
	ModuleHistory  = "history"
)

// Event names written to the run event log.
const (
	EventRunStarted               = "run_started"
	EventNoInputFiles             = "no_input_files"
	EventFileCleaned              = "file_cleaned"
	EventFileCleanError           = "file_clean_error"
	EventStatsSaved               = "stats_saved"
	EventAIPipelineStarted        = "ai_pipeline_started"
	EventAISummarySaved           = "ai_summary_saved"
	EventAIReportSaved            = "ai_report_saved"
	EventAIPipelineFinished       = "ai_pipeline_finished"
	EventAIPipelineError          = "ai_pipeline_error"
	EventIntegrityReportGenerated = "integrity_report_generated"
	EventIntegrityReportError     = "integrity_report_error"
	EventHistorySaved             = "history_saved"
	EventHistoryError             = "history_error"
	EventRunFinished              = "run_finished"
)
