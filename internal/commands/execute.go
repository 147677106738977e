package commands

import "fmt"

type Result struct {
	Message string
}

type Handlers struct {
	Log     func(LogArgs) (Result, error)
	Circle  func(CircleArgs) (Result, error)
	Cadence func(CadenceArgs) (Result, error)
	Config  func(ConfigArgs) (Result, error)
	Replan  func(ReplanArgs) (Result, error)
	Find    func(FindArgs) (Result, error)
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeLog:
		if handlers.Log == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Log(*cmd.Log)
	case TypeCircle:
		if handlers.Circle == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Circle(*cmd.Circle)
	case TypeCadence:
		if handlers.Cadence == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Cadence(*cmd.Cadence)
	case TypeConfig:
		if handlers.Config == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Config(*cmd.Config)
	case TypeReplan:
		if handlers.Replan == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Replan(*cmd.Replan)
	case TypeFind:
		if handlers.Find == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Find(*cmd.Find)
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}

func missing(t Type) error {
	return &CommandError{Code: ErrCodeHandlerMissing, Message: fmt.Sprintf("%s handler not configured", t)}
}
