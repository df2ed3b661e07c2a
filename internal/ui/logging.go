package ui

import (
	"github.com/pterm/pterm"
)

func Printf(format string, a ...interface{}) {
	pterm.Printf(format, a...)
}

func Printfln(format string, a ...interface{}) {
	pterm.Printfln(format, a...)
}

// SetDebugEnabled toggles Debug output, off by default.
func SetDebugEnabled(enabled bool) {
	pterm.PrintDebugMessages = enabled
}

// SetColorEnabled switches all styling on or off.
func SetColorEnabled(enabled bool) {
	if enabled {
		pterm.EnableStyling()
	} else {
		pterm.DisableStyling()
	}
}

func Debug(format string, a ...interface{}) {
	pterm.Debug.Printfln(format, a...)
}

func Info(format string, a ...interface{}) {
	pterm.Info.Printfln(format, a...)
}

func Success(format string, a ...interface{}) {
	pterm.Success.Printfln(format, a...)
}

func Warning(format string, a ...interface{}) {
	pterm.Warning.Printfln(format, a...)
}

func Error(format string, a ...interface{}) {
	pterm.Error.Printfln(format, a...)
}

func Fatal(format string, a ...interface{}) {
	pterm.Fatal.Printfln(format, a...)
}
