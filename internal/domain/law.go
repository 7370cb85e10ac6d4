package domain

import (
	"fmt"
	"strings"
)

// Law: один из трех уровней приоритета (законы Азимова).
// Используется только как порядковый номер для старшинства, арифметики между законами нет.
type Law int

const (
	LawFirst  Law = 1 // Не навреди
	LawSecond Law = 2 // Подчиняйся оператору
	LawThird  Law = 3 // Самосохранение
)

var lawNames = map[Law]string{
	LawFirst:  "FIRST",
	LawSecond: "SECOND",
	LawThird:  "THIRD",
}

var lawTitles = map[Law]string{
	LawFirst:  "First Law (Do No Harm)",
	LawSecond: "Second Law (Obey Operators)",
	LawThird:  "Third Law (Self-Preservation)",
}

func (l Law) Valid() bool {
	_, ok := lawNames[l]
	return ok
}

func (l Law) String() string {
	if n, ok := lawNames[l]; ok {
		return n
	}
	return fmt.Sprintf("Law(%d)", int(l))
}

// Title: человекочитаемое название для reason в вердикте.
func (l Law) Title() string {
	if t, ok := lawTitles[l]; ok {
		return t
	}
	return l.String()
}

func (l Law) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("domain: invalid law %d", int(l))
	}
	return []byte(l.String()), nil
}

func (l *Law) UnmarshalText(b []byte) error {
	parsed, err := ParseLaw(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLaw принимает как имя ("FIRST"), так и номер ("1").
func ParseLaw(s string) (Law, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FIRST", "1":
		return LawFirst, nil
	case "SECOND", "2":
		return LawSecond, nil
	case "THIRD", "3":
		return LawThird, nil
	}
	return 0, fmt.Errorf("domain: unknown law %q", s)
}
