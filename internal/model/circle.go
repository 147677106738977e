package model

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidCircle = errors.New("model: invalid circle")

type Circle string

const (
	CircleInner Circle = "inner"
	CircleMid   Circle = "mid"
	CircleOuter Circle = "outer"
)

func (c Circle) IsValid() bool {
	switch c {
	case CircleInner, CircleMid, CircleOuter:
		return true
	default:
		return false
	}
}

// Order is the garden precedence: inner before mid before outer.
func (c Circle) Order() int {
	switch c {
	case CircleInner:
		return 1
	case CircleMid:
		return 2
	case CircleOuter:
		return 3
	default:
		return 4
	}
}

func ParseCircle(raw string) (Circle, error) {
	c := Circle(strings.ToLower(strings.TrimSpace(raw)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCircle, raw)
	}
	return c, nil
}
