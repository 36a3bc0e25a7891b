package core

import "fmt"

type ErrParsingCommit struct {
	Msg string
	Err error
}

func (e *ErrParsingCommit) Error() string {
	return fmt.Sprintf("failed to parse commit: %s: %v", e.Msg, e.Err)
}

func (e *ErrParsingCommit) Unwrap() error {
	return e.Err
}

type ErrBuildingPrompt struct {
	Template string
	Err      error
}

func (e *ErrBuildingPrompt) Error() string {
	return fmt.Sprintf("failed to build prompt: %s: %v", e.Template, e.Err)
}

func (e *ErrBuildingPrompt) Unwrap() error {
	return e.Err
}
