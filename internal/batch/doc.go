// Package batch applies companion chapter files to every video in a folder.
//
// A Controller lists the folder (retrying briefly when it is unreachable),
// pairs each video with its "<base>.txt" companion, and applies the parsed
// chapters one video at a time. Every video ends with exactly one outcome:
// success, skipped because it had no chapters, or failed with a short
// reason. A failure never stops the remaining videos.
//
// Progress is published through an Observer as the controller moves between
// the states Idle, Scanning, Stripping, Injecting, Recording and Reporting.
package batch
