package extract

import (
	"encoding/json"
	"fmt"

	"github.com/akozyrev/mission-control/internal/domain"
)

// Args is the decoded argument payload of a tool call. Known operations
// decode to typed structs; anything else falls back to OpaqueArgs.
type Args interface {
	isArgs()
}

// ExecuteCommandArgs runs a shell command.
type ExecuteCommandArgs struct {
	Command string `json:"command"`
}

// ReadFileArgs reads a file.
type ReadFileArgs struct {
	Path string `json:"path"`
}

// WriteFileArgs writes content to a file.
type WriteFileArgs struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// ListFilesArgs lists a directory.
type ListFilesArgs struct {
	Path string `json:"path"`
}

// SearchFilesArgs searches files for a pattern.
type SearchFilesArgs struct {
	Path    string `json:"path"`
	Pattern string `json:"pattern"`
}

// OpaqueArgs carries the raw payload of an unrecognized operation.
type OpaqueArgs struct {
	Raw json.RawMessage
}

func (ExecuteCommandArgs) isArgs() {}
func (ReadFileArgs) isArgs()       {}
func (WriteFileArgs) isArgs()      {}
func (ListFilesArgs) isArgs()      {}
func (SearchFilesArgs) isArgs()    {}
func (OpaqueArgs) isArgs()         {}

// DecodeArgs decodes a tool call's args according to its operation name.
func DecodeArgs(call domain.ToolCall) (Args, error) {
	decode := func(v Args) (Args, error) {
		if len(call.Args) == 0 {
			return v, nil
		}
		if err := json.Unmarshal(call.Args, v); err != nil {
			return nil, fmt.Errorf("decode %s args: %w", call.Name, err)
		}
		return v, nil
	}

	switch call.Name {
	case "execute_command":
		return decode(&ExecuteCommandArgs{})
	case "read_file":
		return decode(&ReadFileArgs{})
	case "write_file":
		return decode(&WriteFileArgs{})
	case "list_files":
		return decode(&ListFilesArgs{})
	case "search_files":
		return decode(&SearchFilesArgs{})
	default:
		return OpaqueArgs{Raw: call.Args}, nil
	}
}
