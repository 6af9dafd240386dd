// Package config loads the adshub configuration.
//
// Values come from three layers, later ones winning:
//
//  1. Default()
//  2. a YAML file (--config, or adshub.yaml / config.yaml in the working directory)
//  3. environment variables prefixed ADSHUB_, e.g.
//
//	ADSHUB_SERVER_PORT=9000
//	ADSHUB_PATHS_DATA_DIR=/srv/ads
//	ADSHUB_PIPELINE_HR_STRATEGY=croatia-only
//	ADSHUB_S3_BUCKET=ads-hub-exports
//
// The pipeline section carries the reconciliation figures of the export
// set and can be tuned without a rebuild when a new export arrives.
package config
