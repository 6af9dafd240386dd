// Package exporter writes the outputs of the ads hub.
//
// CSVWriter writes the ";" separated, BOM prefixed CSV files the pipeline
// stages hand to each other. XLSXWriter turns audit reports and datasets
// into workbooks. S3Publisher uploads finished outputs to a bucket.
//
//	w := exporter.NewCSVWriter(outputDir, logger)
//	err := w.Write("MASTER_ADS_HR_CLEANED.csv", domain.CampaignHeader(), records, exporter.DefaultOptions())
package exporter
