package pipeline

import "github.com/dvloznov/statement-trends/internal/present"

// Defaults for publishing. They can be overridden per run through Options.
const (
	// DefaultExportPrefix is the bucket prefix for uploaded comparison exports.
	DefaultExportPrefix = "exports"

	// DefaultExportFormat is the export format uploaded by UploadExportStep.
	DefaultExportFormat = present.FormatXLSX
)
