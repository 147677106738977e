package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sandeepkv93/tend/internal/clock"
	"github.com/sandeepkv93/tend/internal/model"
)

type Type string

const (
	TypeLog     Type = "log"
	TypeCircle  Type = "circle"
	TypeCadence Type = "cadence"
	TypeConfig  Type = "config"
	TypeReplan  Type = "replan"
	TypeFind    Type = "find"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type LogArgs struct {
	Summary string
}

type CircleArgs struct {
	Circle model.Circle
}

// CadenceArgs sets a custom cadence; a nil Days restores the circle default.
type CadenceArgs struct {
	Days *int
}

type ConfigArgs struct {
	Key   string
	Value string
	Patch model.AppConfigPatch
}

type ReplanArgs struct {
	ForceSync bool
}

type FindArgs struct {
	Query string
}

type Command struct {
	Type    Type
	Raw     string
	Log     *LogArgs
	Circle  *CircleArgs
	Cadence *CadenceArgs
	Config  *ConfigArgs
	Replan  *ReplanArgs
	Find    *FindArgs
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}
	if strings.HasPrefix(raw, "/") {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	}
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]

	switch Type(head) {
	case TypeLog:
		return parseLog(input, args)
	case TypeCircle:
		return parseCircle(input, args)
	case TypeCadence:
		return parseCadence(input, args)
	case TypeConfig:
		return parseConfig(input, args)
	case TypeReplan:
		return parseReplan(input, args)
	case TypeFind:
		return Command{Type: TypeFind, Raw: input, Find: &FindArgs{Query: strings.Join(args, " ")}}, nil
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func invalid(format string, a ...any) error {
	return &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, a...)}
}

func parseLog(raw string, args []string) (Command, error) {
	summary := strings.TrimSpace(strings.Join(args, " "))
	if summary == "" {
		return Command{}, invalid("log requires a summary")
	}
	return Command{Type: TypeLog, Raw: raw, Log: &LogArgs{Summary: summary}}, nil
}

func parseCircle(raw string, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, invalid("circle requires one of inner, mid, outer")
	}
	c, err := model.ParseCircle(args[0])
	if err != nil {
		return Command{}, invalid("circle requires one of inner, mid, outer")
	}
	return Command{Type: TypeCircle, Raw: raw, Circle: &CircleArgs{Circle: c}}, nil
}

func parseCadence(raw string, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, invalid("cadence requires a number of days or default")
	}
	if strings.EqualFold(args[0], "default") {
		return Command{Type: TypeCadence, Raw: raw, Cadence: &CadenceArgs{}}, nil
	}
	days, err := parseDays(args[0], 1)
	if err != nil {
		return Command{}, err
	}
	return Command{Type: TypeCadence, Raw: raw, Cadence: &CadenceArgs{Days: &days}}, nil
}

// parseDays accepts a whole number of days no smaller than min.
func parseDays(raw string, min int) (int, error) {
	days, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, invalid("%q is not a whole number of days", raw)
	}
	if days < min {
		return 0, invalid("days must be at least %d, got %d", min, days)
	}
	return days, nil
}

func parseConfig(raw string, args []string) (Command, error) {
	if len(args) != 2 {
		return Command{}, invalid("config requires a key and a value")
	}
	key := strings.ToLower(args[0])
	value := args[1]

	var patch model.AppConfigPatch
	switch key {
	case "inner", "mid", "outer":
		days, err := parseDays(value, 1)
		if err != nil {
			return Command{}, err
		}
		switch key {
		case "inner":
			patch.DefaultCadenceInnerDays = &days
		case "mid":
			patch.DefaultCadenceMidDays = &days
		default:
			patch.DefaultCadenceOuterDays = &days
		}
	case "lead":
		days, err := parseDays(value, 0)
		if err != nil {
			return Command{}, err
		}
		patch.ContactEventsReminderDays = &days
	case "time":
		tod, err := clock.ParseTimeOfDay(value)
		if err != nil {
			return Command{}, invalid("time must be HH:MM, got %q", value)
		}
		s := tod.String()
		patch.ReminderNotificationTime = &s
	case "fuzzy", "persistent", "autolog":
		on, err := parseSwitch(value)
		if err != nil {
			return Command{}, err
		}
		switch key {
		case "fuzzy":
			patch.FuzzyRemindersEnabled = &on
		case "persistent":
			patch.ShouldKeepRemindersPersistent = &on
		default:
			patch.AutomaticLogging = &on
		}
	default:
		return Command{}, invalid("unknown config key %q", key)
	}
	return Command{Type: TypeConfig, Raw: raw, Config: &ConfigArgs{Key: key, Value: value, Patch: patch}}, nil
}

func parseSwitch(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "on", "true", "yes":
		return true, nil
	case "off", "false", "no":
		return false, nil
	default:
		return false, invalid("expected on or off, got %q", raw)
	}
}

func parseReplan(raw string, args []string) (Command, error) {
	switch {
	case len(args) == 0:
		return Command{Type: TypeReplan, Raw: raw, Replan: &ReplanArgs{}}, nil
	case len(args) == 1 && strings.EqualFold(args[0], "sync"):
		return Command{Type: TypeReplan, Raw: raw, Replan: &ReplanArgs{ForceSync: true}}, nil
	default:
		return Command{}, invalid("replan takes no arguments or sync")
	}
}
