package parser

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/zyang01/polynomial-evaluation/pem"
)

// ParseMemory reads a startup-memory file: each line is `<addr>
// <symbol-or-value>`, where addr is an unsigned 32-bit integer and the
// remainder of the line becomes an expression. A value token that parses
// cleanly as an unsigned 32-bit integer becomes a Const expression;
// anything else becomes a Symbol, matching the reference parser's
// line-splitting behavior.
func ParseMemory(r io.Reader) (map[pem.Addr]pem.ExprHandle, error) {
	memory := make(map[pem.Addr]pem.ExprHandle)

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		parts := strings.SplitN(line, " ", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("startup memory: line %d: expected `<addr> <value>`, got %q", lineNum, line)
		}

		addrVal, err := strconv.ParseUint(parts[0], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("startup memory: line %d: invalid address %q: %w", lineNum, parts[0], err)
		}
		addr := pem.Addr(addrVal)

		value := parts[1]
		if numeric, err := strconv.ParseUint(value, 10, 32); err == nil {
			memory[addr] = pem.FromConst(uint32(numeric))
		} else {
			memory[addr] = pem.FromSymbol(value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading startup memory: %w", err)
	}

	return memory, nil
}
