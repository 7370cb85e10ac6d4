package policy

import "errors"

var (
	ErrDuplicateRuleID  = errors.New("policy: duplicate rule id")
	ErrRuleNotFound     = errors.New("policy: rule not found")
	ErrInvalidPredicate = errors.New("policy: invalid predicate")
	ErrInvalidRule      = errors.New("policy: invalid rule")
)
