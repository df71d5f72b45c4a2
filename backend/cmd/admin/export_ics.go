package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sga-horarios/backend/internal/model"
	"sga-horarios/backend/internal/service"
)

func newExportICSCmd() *cobra.Command {
	var (
		instructorID int
		output       string
		timezone     string
	)

	cmd := &cobra.Command{
		Use:   "export-ics <horarios.xml>",
		Short: "将指定教师的课表导出为 iCalendar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if instructorID <= 0 {
				return fmt.Errorf("--instructor 必须为正整数")
			}
			loc, err := time.LoadLocation(timezone)
			if err != nil {
				return fmt.Errorf("时区无效: %w", err)
			}

			sys, err := readSystem(args[0])
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return writeInstructorCalendar(w, sys.Entries, instructorID, loc, time.Now())
		},
	}

	f := cmd.Flags()
	f.IntVarP(&instructorID, "instructor", "i", 0, "教师编号")
	f.StringVarP(&output, "output", "o", "-", "输出文件，- 表示标准输出")
	f.StringVar(&timezone, "tz", "America/Guayaquil", "课表所在时区")
	_ = cmd.MarkFlagRequired("instructor")

	return cmd
}

func writeInstructorCalendar(w io.Writer, entries []model.ScheduleEntry, instructorID int, loc *time.Location, ref time.Time) error {
	own := service.FilterByInstructor(entries, instructorID)
	if len(own) == 0 {
		return fmt.Errorf("%w: 教师 %d", service.ErrExportNoEntries, instructorID)
	}
	cal, err := service.BuildCalendar(own, loc, ref)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, cal.Serialize())
	return err
}
