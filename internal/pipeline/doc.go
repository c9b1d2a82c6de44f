// Package pipeline runs one metahunter batch through its steps.
//
// A run moves through cleaning, analysis, stats persistence, the optional
// summary and integrity reports, and the optional history record. Each
// stage is a Step that receives the shared *model.Run and adds its results
// to it.
//
// Design decision: We use a pipeline pattern instead of direct function
// calls so optional stages are added or left out when the pipeline is
// built, and every stage gets the same cancellation and logging.
//
// Per-file work inside a step (cleaning) runs concurrently through
// BatchProcessor, which keeps results in input order.
package pipeline
