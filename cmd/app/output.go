package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/lmco/eurekastreams-sub009/internal/adapters/directory"
	"github.com/lmco/eurekastreams-sub009/internal/domain"
)

type whoAmI struct {
	PersonID    int64    `json:"person_id"`
	AccountID   string   `json:"account_id"`
	Permissions []string `json:"permissions"`
}

func printJSON(v any) error {
	b, err := jsonMarshal(v)
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printKV(rows [][2]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
	_ = w.Flush()
}

func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println("no results")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

func formatInt(v int64) string { return strconv.FormatInt(v, 10) }

func printWhoAmI(out whoAmI) {
	sort.Strings(out.Permissions)
	printKV([][2]string{
		{"person_id", formatInt(out.PersonID)},
		{"account_id", out.AccountID},
		{"permissions", strings.Join(out.Permissions, ",")},
	})
}

func printUsageSummary(s domain.UsageMetricSummary) {
	printKV([][2]string{
		{"records", strconv.Itoa(s.RecordCount)},
		{"weekday_records", formatInt(s.WeekdayRecordCount)},
		{"avg_unique_visitors", formatInt(s.AverageDailyUniqueVisitorCount)},
		{"avg_page_views", formatInt(s.AverageDailyPageViewCount)},
		{"avg_stream_viewers", formatInt(s.AverageDailyStreamViewerCount)},
		{"avg_stream_views", formatInt(s.AverageDailyStreamViewCount)},
		{"avg_contributors", formatInt(s.AverageDailyStreamContributorCount)},
		{"avg_messages", formatInt(s.AverageDailyMessageCount)},
		{"avg_comments", formatInt(s.AverageDailyCommentCount)},
		{"avg_response_time", formatInt(s.AverageDailyActivityResponseTime)},
		{"total_activities", formatInt(s.TotalActivityCount)},
		{"total_comments", formatInt(s.TotalCommentCount)},
	})

	rows := make([][]string, 0, len(s.DailyStatistics))
	for _, d := range s.DailyStatistics {
		if d == nil {
			continue
		}
		rows = append(rows, []string{
			d.UsageDate.Format("2006-01-02"),
			formatInt(d.UniqueVisitorCount),
			formatInt(d.PageViewCount),
			formatInt(d.StreamViewCount),
			formatInt(d.MessageCount),
		})
	}
	fmt.Println()
	printTable([]string{"DATE", "VISITORS", "PAGE_VIEWS", "STREAM_VIEWS", "MESSAGES"}, rows)
}

func printSettings(s domain.SystemSettings) {
	admins := make([]string, 0, len(s.AdminIDs))
	for _, id := range s.AdminIDs {
		admins = append(admins, formatInt(id))
	}
	printKV([][2]string{
		{"site_label", s.SiteLabel},
		{"tos_prompt_interval", strconv.Itoa(s.TOSPromptInterval)},
		{"content_expiration", strconv.Itoa(s.ContentExpiration)},
		{"content_warning", s.ContentWarningText},
		{"support_group", s.SupportStreamGroupShortName},
		{"support_phone", s.SupportPhoneNumber},
		{"support_email", s.SupportEmailAddress},
		{"admin_ids", strings.Join(admins, ",")},
	})
}

func printImportResult(res directory.Result) {
	kinds := []string{"organization", "person", "group"}
	rows := make([][]string, 0, len(kinds))
	for _, k := range kinds {
		rows = append(rows, []string{k, strconv.Itoa(res.Created[k]), strconv.Itoa(res.Skipped[k])})
	}
	printTable([]string{"KIND", "CREATED", "SKIPPED"}, rows)
	for _, f := range res.Failed {
		fmt.Println("failed:", f)
	}
}

// reportActionError writes validation failures one field per line and condenses the error.
func reportActionError(w io.Writer, err error) error {
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	fields := make([]string, 0, len(verr.Errors))
	for field := range verr.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, field := range fields {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", field, verr.Errors[field])
	}
	_ = tw.Flush()
	return fmt.Errorf("validation failed on %d field(s)", len(fields))
}
