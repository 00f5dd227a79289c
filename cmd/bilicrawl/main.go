// Package main provides the entry point for the bilicrawl CLI.
//
// bilicrawl searches Bilibili for videos matching a keyword, keeps the
// results that mention the subject and a match topic, and writes them to
// a CSV file that opens cleanly in spreadsheet software.
//
// Usage:
//
//	bilicrawl crawl
//	bilicrawl crawl -k "石宇奇 比赛 录像" -k "石宇奇 决赛" -o matches.csv
//
// See --help for all available options.
package main

// main is the entry point for bilicrawl.
func main() {
	Execute()
}
