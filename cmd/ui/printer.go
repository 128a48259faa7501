package ui

import (
	"fmt"
	"strings"
)

// IsRawMode is set by input_monitor.go while the ESC-cancellation
// monitor holds the terminal in raw mode, so Print/Printf/Println know
// to rewrite bare "\n" into "\r\n" for the duration.
var IsRawMode = false

// Printf is fmt.Printf with raw-mode CRLF translation.
func Printf(format string, a ...interface{}) {
	s := fmt.Sprintf(format, a...)
	Print(s)
}

// Print is fmt.Print with raw-mode CRLF translation.
func Print(a ...interface{}) {
	s := fmt.Sprint(a...)
	if IsRawMode {
		s = strings.ReplaceAll(s, "\n", "\r\n")
	}
	fmt.Print(s)
}

// Println is fmt.Println with raw-mode CRLF translation.
func Println(a ...interface{}) {
	s := fmt.Sprint(a...)
	if IsRawMode {
		s = strings.ReplaceAll(s, "\n", "\r\n")
		// fmt.Println adds a newline at the end, we need to make sure that one is also CRLF'd
		fmt.Print(s + "\r\n")
	} else {
		fmt.Println(s)
	}
}
