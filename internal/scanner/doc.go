// Package scanner coordinates a full probe run against one Joomla target.
//
// Architecture overview:
//
//   - BuildTargets expands the signature database against the base URL into
//     the fixed probe list for the scan (component paths, sensitive files,
//     plus one site-root target for the header policy).
//   - Runner fans the targets out over a bounded worker pool with optional
//     rate limiting, pushing each through the probe client and retry policy.
//     Every submitted target yields exactly one Result, even when the scan is
//     cancelled mid-flight.
//   - Aggregator is the single consumer of the completion stream. It invokes
//     the matcher, folds findings and errors into the Report, and finalizes
//     it deterministically regardless of completion order.
//   - Scanner is the facade the CLI uses: validate config, plan targets, run,
//     collect.
//
// The report is the only mutable shared state in a scan and it is owned
// exclusively by the aggregator's consuming loop.
package scanner
