package catalog

// DefaultSignatures is the built-in threat signature set. Order matters:
// scan results list threats in this order, and the more specific
// variants of a family sit next to the general one.
var DefaultSignatures = []Signature{
	{
		Key:         "SQL_INJECTION",
		Pattern:     `(?i)(\bunion\b[\s\(]+(all[\s\(]+)?\bselect\b|\bselect\b[\s\(]+[\w\*,\s]+\bfrom\b[\s\(]+\w+|\binsert\b\s+into\b|\bdrop\b\s+(table|database)\b|\bdelete\b\s+from\b|\bupdate\b\s+\w+\s+set\b)`,
		Severity:    SeverityCritical,
		Description: "SQL injection via embedded statement keywords",
	},
	{
		Key:         "SQL_INJECTION_BLIND",
		Pattern:     `(?i)(\bsleep\s*\(\s*\d+|\bbenchmark\s*\(|\bwaitfor\b\s+delay\b|\bpg_sleep\s*\(|\bextractvalue\s*\(|\bupdatexml\s*\()`,
		Severity:    SeverityCritical,
		Description: "Blind/time-based SQL injection probe",
	},
	{
		Key:         "SQL_INJECTION_LOGIC",
		Pattern:     `(?i)('\s*(or|and)\s*'?\d+\s*=\s*\d+|\b(or|and)\b\s+\d+\s*=\s*\d+|'\s*(or|and)\s*'[^']*'\s*=\s*'|;\s*--|'\s*--)`,
		Severity:    SeverityHigh,
		Description: "Tautology-based SQL logic manipulation",
	},
	{
		Key:         "XSS",
		Pattern:     `(?i)(<\s*script[^>]*>|<\s*/\s*script\s*>|javascript\s*:|<\s*iframe\b|<\s*object\b|<\s*embed\b|vbscript\s*:)`,
		Severity:    SeverityHigh,
		Description: "Cross-site scripting via script or frame injection",
	},
	{
		Key:         "XSS_EVENT_HANDLER",
		Pattern:     `(?i)\bon(error|load|click|mouseover|focus|blur|submit|keydown)\s*=`,
		Severity:    SeverityHigh,
		Description: "Cross-site scripting via inline event handler",
	},
	{
		Key:         "COMMAND_INJECTION",
		Pattern:     "(?i)(;\\s*(cat|ls|id|whoami|wget|curl|nc|bash|sh|powershell)\\b|\\|\\s*(cat|ls|id|whoami|wget|curl|nc|bash|sh)\\b|&&\\s*(cat|ls|id|whoami|rm|wget|curl)\\b|\\$\\([^)]*\\)|`[^`]*`)",
		Severity:    SeverityCritical,
		Description: "Shell command injection via metacharacters",
	},
	{
		Key:         "PATH_TRAVERSAL",
		Pattern:     `(?i)(\.\./|\.\.\\|%2e%2e%2f|%2e%2e/|\.\.%2f|%252e%252e|/etc/(passwd|shadow)\b|c:\\+windows\\)`,
		Severity:    SeverityHigh,
		Description: "Directory traversal outside the document root",
	},
	{
		Key:         "NOSQL_INJECTION",
		Pattern:     `(?i)(\$where\b|\$ne\b|\$gt\b|\$lt\b|\$regex\b|\$nin\b|\$exists\b|{\s*"\$)`,
		Severity:    SeverityHigh,
		Description: "NoSQL operator injection",
	},
	{
		Key:         "PROTOTYPE_POLLUTION",
		Pattern:     `(?i)(__proto__|constructor\s*\[\s*["']prototype["']\s*\]|\bconstructor\.prototype\b)`,
		Severity:    SeverityHigh,
		Description: "Prototype pollution key in structured payload",
	},
	{
		Key:         "SCANNER_USER_AGENT",
		Pattern:     `(?i)\b(sqlmap|nikto|nmap|masscan|nessus|acunetix|metasploit|hydra|gobuster|dirbuster|wpscan|burpsuite|zgrab|havij)\b`,
		Severity:    SeverityCritical,
		Description: "Automated vulnerability scanner user agent",
	},
}

// Default returns the compiled built-in catalog. Compilation of the
// built-in set is exercised by tests, so a panic here means a broken
// build, not a runtime condition.
func Default() *Catalog {
	return MustCompile(DefaultSignatures)
}
