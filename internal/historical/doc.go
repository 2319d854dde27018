// Package historical downloads the result files of a completed historical
// job. Each file in the job's URL list is fetched at most once, inflated and
// stored as <index>.json in the output directory, so an interrupted run can
// simply be started again.
package historical
