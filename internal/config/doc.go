// Package config loads the report configuration for gmailplayground.
//
// Configuration comes from three layers, later layers winning:
//   - built-in defaults (the YARN daily unit test report query)
//   - a TOML file, by default ~/.gmailplayground/config.toml
//   - command-line flags applied by the cmd package
//
// Example file:
//
//	query = 'subject:"YARN Daily unit test report"'
//	regex = '.*org\.apache\.hadoop\.yarn.*'
//	skip_lines_starting_with = ["Failed testcases:", "FILTER:"]
//	limit = 100
//
//	[gsheet]
//	client_secret = "/path/to/service-account.json"
//	spreadsheet = "YARN failures"
//	worksheet = "daily"
package config
