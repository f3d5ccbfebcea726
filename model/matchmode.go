package model

import (
	"fmt"
	"strings"
)

// MatchMode selects how a rule's trigger keywords are applied to comment text.
type MatchMode string

const (
	MatchModeAny   MatchMode = "any"
	MatchModeAll   MatchMode = "all"
	MatchModeExact MatchMode = "exact"
)

func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(s) {
	case string(MatchModeAny):
		return MatchModeAny, nil
	case string(MatchModeAll):
		return MatchModeAll, nil
	case string(MatchModeExact):
		return MatchModeExact, nil
	default:
		return MatchModeAny, fmt.Errorf("unknown match mode: %s", s)
	}
}
