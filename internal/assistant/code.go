package assistant

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ErrBlockedOperation is returned when generated code contains a forbidden call.
var ErrBlockedOperation = errors.New("blocked operation")

// BlockedOperations are rejected wherever they occur in generated code.
var BlockedOperations = []string{
	"os.remove",
	"os.rmdir",
	"os.unlink",
	"shutil.rmtree",
	"subprocess",
	"eval(",
	"__import__",
	"compile(",
	"exec(",
}

// AllowedWriteDirs may be written to by generated code.
var AllowedWriteDirs = []string{
	"notebooks/chat_logs/",
	"data/uploaded/",
}

var writeOpen = regexp.MustCompile(`open\([^)]*['"][wa]['"]`)

// ValidateCode rejects code containing a blocked operation, or a write-mode
// open() when no allowed directory is referenced.
func ValidateCode(code string) error {
	for _, op := range BlockedOperations {
		if strings.Contains(code, op) {
			return fmt.Errorf("%w: %s", ErrBlockedOperation, op)
		}
	}

	if writeOpen.MatchString(code) {
		for _, dir := range AllowedWriteDirs {
			if strings.Contains(code, dir) {
				return nil
			}
		}
		return fmt.Errorf("%w: file write outside %s", ErrBlockedOperation, strings.Join(AllowedWriteDirs, ", "))
	}
	return nil
}

// ExtractCode returns the first ```python block of a model response, else
// the first fenced block without a language, else the trimmed response.
func ExtractCode(response string) string {
	source := []byte(response)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var python, plain string
	var foundPython, foundPlain bool
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		block, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		lang := string(block.Language(source))
		switch {
		case lang == "python" && !foundPython:
			python, foundPython = blockText(block, source), true
			return ast.WalkStop, nil
		case block.Info == nil && !foundPlain:
			plain, foundPlain = blockText(block, source), true
		}
		return ast.WalkSkipChildren, nil
	})

	switch {
	case foundPython:
		return python
	case foundPlain:
		return plain
	default:
		return strings.TrimSpace(response)
	}
}

func blockText(block *ast.FencedCodeBlock, source []byte) string {
	var b strings.Builder
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return strings.TrimSuffix(b.String(), "\n")
}
