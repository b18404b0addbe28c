package audit

import (
	"path"
	"regexp"
	"strings"

	"aiaudit/internal/rules"
)

// codeExtensions are scanned by the security and ai-pattern engines.
var codeExtensions = map[string]string{
	"ts":     "typescript",
	"tsx":    "typescript",
	"js":     "javascript",
	"jsx":    "javascript",
	"mjs":    "javascript",
	"cjs":    "javascript",
	"py":     "python",
	"rb":     "ruby",
	"go":     "go",
	"rs":     "rust",
	"java":   "java",
	"kt":     "kotlin",
	"c":      "c",
	"cpp":    "cpp",
	"h":      "c",
	"hpp":    "cpp",
	"cs":     "csharp",
	"swift":  "swift",
	"php":    "php",
	"vue":    "vue",
	"svelte": "svelte",
}

// docExtensions are text, config and doc formats that may carry license text.
var docExtensions = map[string]bool{
	"md": true, "txt": true, "json": true, "yaml": true, "yml": true,
	"toml": true, "cfg": true, "ini": true,
}

// licenseNames match anywhere in the upper-cased basename.
var licenseNames = []string{
	"LICENSE", "COPYING", "NOTICE", "README",
	"PACKAGE.JSON", "CARGO.TOML", "GO.MOD", "REQUIREMENTS.TXT", "GEMFILE", "POM.XML",
}

var piiSkipPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\.min\.js$`),
	regexp.MustCompile(`\.bundle\.js$`),
	regexp.MustCompile(`node_modules/`),
	regexp.MustCompile(`vendor/`),
	regexp.MustCompile(`\.lock$`),
	regexp.MustCompile(`package-lock\.json$`),
	regexp.MustCompile(`yarn\.lock$`),
	regexp.MustCompile(`\.svg$`),
	regexp.MustCompile(`\.png$`),
	regexp.MustCompile(`\.jpg$`),
	regexp.MustCompile(`\.gif$`),
	regexp.MustCompile(`\.ico$`),
	regexp.MustCompile(`\.woff2?$`),
	regexp.MustCompile(`\.ttf$`),
	regexp.MustCompile(`\.eot$`),
}

// Extension returns the lower-cased text after the final '.', or "" if none.
func Extension(filename string) string {
	i := strings.LastIndexByte(filename, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(filename[i+1:])
}

// Language names the programming language of a code file, or "".
func Language(filename string) string {
	return codeExtensions[Extension(filename)]
}

// IsCodeFile reports whether filename has a programming-language extension.
func IsCodeFile(filename string) bool {
	_, ok := codeExtensions[Extension(filename)]
	return ok
}

// IsLicenseRelevant reports whether filename may carry license text.
func IsLicenseRelevant(filename string) bool {
	if IsCodeFile(filename) || docExtensions[Extension(filename)] {
		return true
	}
	base := strings.ToUpper(path.Base(filename))
	for _, name := range licenseNames {
		if strings.Contains(base, name) {
			return true
		}
	}
	return false
}

// ShouldSkipPII reports whether filename is a generated, vendored or binary
// asset that the PII engine ignores.
func ShouldSkipPII(filename string) bool {
	for _, re := range piiSkipPatterns {
		if re.MatchString(filename) {
			return true
		}
	}
	return false
}

// InScope reports whether the engine for category scans filename.
func InScope(category rules.Category, filename string) bool {
	switch category {
	case rules.CategoryAIPattern, rules.CategorySecurity:
		return IsCodeFile(filename)
	case rules.CategoryLicense:
		return IsLicenseRelevant(filename)
	case rules.CategoryPII:
		return !ShouldSkipPII(filename)
	}
	return false
}
