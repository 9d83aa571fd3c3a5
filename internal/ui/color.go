// Package ui provides colored console output with a shipyard theme.
package ui

import (
	"fmt"

	"github.com/fatih/color"
)

var (
	// Colors
	Red    = color.New(color.FgRed)
	Green  = color.New(color.FgGreen)
	Yellow = color.New(color.FgYellow)
	Blue   = color.New(color.FgBlue)
	Cyan   = color.New(color.FgCyan)
	Bold   = color.New(color.Bold)
)

// Success prints a green success message with checkmark.
func Success(format string, args ...any) {
	Green.Printf("✓ "+format+"\n", args...)
}

// Warning prints a yellow warning message.
func Warning(format string, args ...any) {
	Yellow.Printf("⚠ "+format+"\n", args...)
}

// Info prints a blue info message.
func Info(format string, args ...any) {
	Blue.Printf(format+"\n", args...)
}

// File events, aligned like a generator log:
//
//	create  jobs/web/spec
//	  skip  jobs/web/monit
func Create(path string) {
	Green.Printf("%9s  ", "create")
	fmt.Println(path)
}

func Skip(path string) {
	Yellow.Printf("%9s  ", "skip")
	fmt.Println(path)
}

func Overwrite(path string) {
	Cyan.Printf("%9s  ", "overwrite")
	fmt.Println(path)
}

// Shipyard messages
func Anchor(format string, args ...any) {
	Blue.Printf("⚓ "+format+"\n", args...)
}

func Ship(format string, args ...any) {
	Green.Printf("🚢 "+format+"\n", args...)
}

func Compass(format string, args ...any) {
	Cyan.Printf("🧭 "+format+"\n", args...)
}

func Package(format string, args ...any) {
	Green.Printf("📦 "+format+"\n", args...)
}
