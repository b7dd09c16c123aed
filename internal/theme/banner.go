package theme

import (
	"fmt"
)

// Banner returns the CLI banner.
func Banner() string {
	const cyan = "\033[36m"
	const reset = "\033[0m"

	return cyan + "  ┌─┐ tweetarchive\n" +
		"  └─┘ stream capture → relational store\n" + reset
}

// PrintBanner prints the banner to stdout.
func PrintBanner() {
	fmt.Print(Banner())
}
