package config

// SourceFileExt is the conventional extension for source files. The
// CLI reads source from stdin and does not check it.
const SourceFileExt = ".znj"

// SourceFileExtensions lists the conventional source extensions. No
// CLI verb scans directories or consults this list.
var SourceFileExtensions = []string{SourceFileExt}

// Keyword names, matched literally by the lexer.
const (
	KeywordInstruction = "instruction"
	KeywordExternal    = "external"
)
