// Package consts defines the constants used by the project
package consts

import "github.com/tiss-greeter/greetd-backend/log"

var (
	// Version is the version of the executable.
	Version = "Dev"
)

const (
	// CmdName is the name under which this binary is invoked, used in logs and usage strings.
	CmdName = "tiss-greeterd"

	// DefaultLogLevel is the default logging level selected without any option.
	DefaultLogLevel = log.NoticeLevel
)
