package risk

import (
	"regexp"
)

// DangerPattern: сигнатура опасной операции в свободном тексте.
type DangerPattern struct {
	Signature *regexp.Regexp
	Label     string
}

type rawPattern struct {
	expr  string
	label string
}

// Сигнатуры регистронезависимые. Порядок списка: порядок меток в результате Scan.
var defaultPatterns = []rawPattern{
	// Сеть
	{`(?i)(ddos|denial.of.service)`, "DDoS attack patterns"},
	{`(?i)(ransomware|crypto.lock)`, "Ransomware indicators"},
	{`(?i)(botnet|zombie)`, "Botnet operations"},

	// Данные
	{`(?i)(delete|drop|truncate).*database`, "Database destruction"},
	{`(?i)(format|wipe|erase).*drive`, "Data wiping operations"},
	{`(?i)(steal|exfiltrate|extract).*data`, "Data theft operations"},

	// Система
	{`(?i)(backdoor|rootkit|trojan)`, "Malware installation"},
	{`(?i)(privilege.escalation|admin.access)`, "Unauthorized access"},
	{`(?i)(keylogger|screen.capture)`, "Surveillance tools"},

	// Социальные
	{`(?i)(phishing|social.engineering)`, "Social engineering"},
	{`(?i)(impersonat|identity.theft)`, "Identity crimes"},
}

// Scanner проверяет свободный текст на фиксированный набор сигнатур, скомпилированный один раз.
// После создания не меняется, поэтому безопасен для конкурентного чтения без блокировок.
type Scanner struct {
	patterns []DangerPattern
}

// NewScanner компилирует встроенные сигнатуры. Ошибка компиляции: баг в коде,
// поэтому MustCompile.
func NewScanner() *Scanner {
	s := &Scanner{patterns: make([]DangerPattern, 0, len(defaultPatterns))}
	for _, p := range defaultPatterns {
		s.patterns = append(s.patterns, DangerPattern{
			Signature: regexp.MustCompile(p.expr),
			Label:     p.label,
		})
	}
	return s
}

// Scan возвращает метки всех совпавших сигнатур.
func (s *Scanner) Scan(text string) []string {
	if text == "" {
		return nil
	}
	var labels []string
	for _, p := range s.patterns {
		if p.Signature.MatchString(text) {
			labels = append(labels, p.Label)
		}
	}
	return labels
}

// Patterns: копия списка сигнатур (для диагностики).
func (s *Scanner) Patterns() []DangerPattern {
	return append([]DangerPattern(nil), s.patterns...)
}
