// Package exitcodes defines the standard exit codes used by stressy.
package exitcodes

// Exit code constants used by stressy
// These constants define the exit codes that the application uses to indicate
// how a campaign ended:
//
// * Passed (0): Used when the campaign halted with zero failed runs
// * Failed (1): Used when at least one run failed (non-zero exit or timeout)
// * Cancelled (2): Used when the user interrupted the campaign
// * RuntimeErr (3): Used for runtime errors such as an unlaunchable command or
//   invalid configuration
const (
	Passed     = 0 // All runs completed successfully
	Failed     = 1 // One or more runs failed
	Cancelled  = 2 // Campaign cancelled by the user
	RuntimeErr = 3 // Runtime errors, not a verdict on the command
)
