// Package operations runs the ads hub data pipeline.
//
// A Step is one stage of the pipeline: it declares the stages it depends
// on, the files it reads and writes, and publishes its figures into its
// StepState metadata and the operation context. The Registry orders stages
// by dependency; the Manager executes them sequentially with per-stage
// timeouts and retries, skips the dependents of a failed stage, and reports
// every change through the StatusBroadcaster as an operation snapshot.
//
// The pipeline stages are:
//
//	merge -> hr-extract -> standardize -> master -> rolling -> persist
//	                                                       \-> publish
//
// persist is registered only with a store, publish only with a bucket.
// Setting the "step" parameter runs a single stage against the files
// already on disk.
//
//	registry := operations.NewRegistry()
//	if err := operations.RegisterPipeline(registry, deps); err != nil {
//		return err
//	}
//	manager := operations.NewManager(hub, registry, operations.NewConfig(), logger, tracer)
//	resp, err := manager.Execute(ctx, operations.OperationRequest{})
//
// JobQueue runs the same operations in the background for the HTTP API.
package operations
