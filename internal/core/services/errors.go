package services

import "errors"

// Catalog errors
var (
	ErrSoftwareNotFound = errors.New("catalog: software not found")
	ErrCatalogLoad      = errors.New("catalog: load failed")
)

// Install errors
var (
	ErrDownloadFailed      = errors.New("install: download failed")
	ErrChecksumMismatch    = errors.New("install: checksum mismatch")
	ErrShortDownload       = errors.New("install: stream ended before declared length")
	ErrInstallActionFailed = errors.New("install: installer action failed")
)

// Collector errors
var (
	ErrReportInvalid = errors.New("collector: invalid report")
)
