// Package ui provides colored terminal output for the CLI.
package ui

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

const headerWidth = 60

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	stepColor    = color.New(color.FgBlue, color.Bold)
	successColor = color.New(color.FgGreen)
	infoColor    = color.New(color.FgWhite)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	blue         = color.New(color.FgBlue)
	yellow       = color.New(color.FgYellow)
)

// center left-pads text so it sits in the middle of width columns. Text
// wider than width is returned unchanged.
func center(text string, width int) string {
	if len(text) >= width {
		return text
	}
	return strings.Repeat(" ", (width-len(text))/2) + text
}

// Header prints a banner with the given title centered.
func Header(title string) {
	line := strings.Repeat("=", headerWidth)
	headerColor.Println(line)
	headerColor.Println(center(title, headerWidth))
	headerColor.Println(line)
}

// Step prints a numbered progress step, e.g. "[2/5] Fetching transactions".
func Step(n, total int, msg string) {
	stepColor.Printf("[%d/%d] ", n, total)
	fmt.Println(msg)
}

// Success prints a green checkmarked message.
func Success(msg string) {
	successColor.Printf("✓ %s\n", msg)
}

// Info prints a neutral informational message.
func Info(msg string) {
	infoColor.Println(msg)
}

// Warning prints a yellow warning message.
func Warning(msg string) {
	warnColor.Printf("⚠ %s\n", msg)
}

// Error prints a red error message.
func Error(msg string) {
	errorColor.Printf("✗ %s\n", msg)
}

// BlueText prints msg in blue.
func BlueText(msg string) {
	blue.Println(msg)
}

// YellowText prints msg in yellow.
func YellowText(msg string) {
	yellow.Println(msg)
}
