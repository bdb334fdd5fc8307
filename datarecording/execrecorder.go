package datarecording

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExecInfo is one property of the program execution.
type ExecInfo struct {
	Property string
	Value    string
}

// ExecInfoTable is the table that holds the execution properties.
const ExecInfoTable = "exec_info"

const execTimeFormat = "2006-01-02 15:04:05.000000000"

// execRecorder records how and when the program ran.
type execRecorder struct {
	recorder DataRecorder
	entries  []ExecInfo
}

func newExecRecorder(recorder DataRecorder) *execRecorder {
	e := &execRecorder{recorder: recorder}

	recorder.CreateTable(ExecInfoTable, ExecInfo{})
	e.start()

	return e
}

func (e *execRecorder) start() {
	e.entries = append(e.entries,
		ExecInfo{"Start Time", time.Now().Format(execTimeFormat)},
		ExecInfo{"Command", strings.Join(os.Args, " ")},
	)

	ex, err := os.Executable()
	if err == nil {
		e.entries = append(e.entries,
			ExecInfo{"Working Directory", filepath.Dir(ex)})
	}
}

// End writes the recorded properties along with the exit time.
func (e *execRecorder) End() {
	for _, entry := range e.entries {
		e.recorder.InsertData(ExecInfoTable, entry)
	}

	e.recorder.InsertData(ExecInfoTable,
		ExecInfo{"End Time", time.Now().Format(execTimeFormat)})

	e.entries = nil
}
