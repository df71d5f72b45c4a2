package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"sga-horarios/backend/internal/model"
	"sga-horarios/backend/internal/service"
)

// errConflictsFound --strict 下存在冲突时返回
var errConflictsFound = errors.New("课表存在冲突")

func newCheckCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check <horarios.xml>",
		Short: "解析课表文档，校验条目并列出教师与教室冲突",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := readSystem(args[0])
			if err != nil {
				return err
			}
			n := reportConflicts(cmd.OutOrStdout(), sys)
			if n > 0 && strict {
				return errConflictsFound
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "存在冲突时返回非零退出码")

	return cmd
}

// readSystem 读取并校验课表文档
func readSystem(path string) (*model.ScheduleSystem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sys, err := service.ParseScheduleXML(data)
	if err != nil {
		return nil, err
	}
	if err := service.ValidateSystem(sys); err != nil {
		return nil, err
	}
	return sys, nil
}

// reportConflicts 输出摘要与分组冲突，返回冲突总数
func reportConflicts(w io.Writer, sys *model.ScheduleSystem) int {
	fmt.Fprintf(w, "%s · %s · %s\n", sys.Metadata.Institution, sys.Metadata.Program, sys.Metadata.Period)
	fmt.Fprintf(w, "条目: %d\n", len(sys.Entries))

	total := 0
	for _, g := range service.GroupConflicts(sys.Entries) {
		kind := "教师"
		if g.Resource == service.ConflictResourceRoom {
			kind = "教室"
		}
		fmt.Fprintf(w, "\n[%s] %s (%s)\n", kind, g.Label, g.Key)
		for _, c := range g.Conflicts {
			fmt.Fprintf(w, "  - %s\n", c.Message)
		}
		total += len(g.Conflicts)
	}

	if total == 0 {
		fmt.Fprintln(w, "未发现冲突")
	} else {
		fmt.Fprintf(w, "\n共 %d 处冲突\n", total)
	}
	return total
}
