package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/aquasafe/aquasafe/pkg/api"
	"github.com/aquasafe/aquasafe/pkg/models"
)

var samplesCmd = &cobra.Command{
	Use:   "samples",
	Short: "Query samples on a running server",
	Long: `Query a running AquaSafe server. Authenticate with --token (or
AQUASAFE_TOKEN), or with --username to be prompted for a password.`,
}

var samplesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List one page of samples",
	RunE:  runSamplesList,
}

var samplesStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show statistics over matching samples",
	RunE:  runSamplesStats,
}

var samplesGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a single sample",
	Args:  cobra.ExactArgs(1),
	RunE:  runSamplesGet,
}

func init() {
	rootCmd.AddCommand(samplesCmd)
	samplesCmd.AddCommand(samplesListCmd)
	samplesCmd.AddCommand(samplesStatsCmd)
	samplesCmd.AddCommand(samplesGetCmd)

	pf := samplesCmd.PersistentFlags()
	pf.String("server", "http://localhost:8059", "AquaSafe server URL")
	pf.String("token", os.Getenv("AQUASAFE_TOKEN"), "bearer token")
	pf.String("username", "", "log in as this user instead of passing a token")
	pf.Duration("timeout", 30*time.Second, "request timeout")

	for _, c := range []*cobra.Command{samplesListCmd, samplesStatsCmd} {
		addFilterFlags(c.Flags())
	}

	samplesListCmd.Flags().Int("page", models.DefaultPage, "page number")
	samplesListCmd.Flags().Int("limit", models.DefaultPageSize, "page size (capped by role)")
	samplesListCmd.Flags().String("sort-by", models.DefaultSortField, "sort field")
	samplesListCmd.Flags().String("sort-order", string(models.SortDesc), "asc or desc")
}

func addFilterFlags(fs *pflag.FlagSet) {
	fs.String("status", "", "safe, marginal or high")
	fs.String("location", "", "location substring")
	fs.String("from", "", "earliest sample date (YYYY-MM-DD)")
	fs.String("to", "", "latest sample date (YYYY-MM-DD)")
	fs.Float64("hmpi-min", 0, "minimum index value")
	fs.Float64("hmpi-max", 0, "maximum index value")
}

func filterFromFlags(fs *pflag.FlagSet) (models.SampleFilter, error) {
	var f models.SampleFilter

	status, _ := fs.GetString("status")
	f.Status = models.Status(status)
	f.Location, _ = fs.GetString("location")

	for flag, dst := range map[string]**time.Time{"from": &f.DateFrom, "to": &f.DateTo} {
		v, _ := fs.GetString(flag)
		if v == "" {
			continue
		}
		t, err := models.ParseDate(v)
		if err != nil {
			return f, fmt.Errorf("invalid --%s: %w", flag, err)
		}
		*dst = &t
	}

	for flag, dst := range map[string]**float64{"hmpi-min": &f.HMPIMin, "hmpi-max": &f.HMPIMax} {
		if !fs.Changed(flag) {
			continue
		}
		v, _ := fs.GetFloat64(flag)
		*dst = &v
	}

	return f, nil
}

// newAPIClient builds a client from the persistent flags, logging in first
// when --username is given
func newAPIClient(cmd *cobra.Command) (*api.Client, error) {
	server, _ := cmd.Flags().GetString("server")
	token, _ := cmd.Flags().GetString("token")
	username, _ := cmd.Flags().GetString("username")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	client := api.NewClient(server, api.WithTimeout(timeout), api.WithToken(token))
	if username == "" {
		if token == "" {
			return nil, fmt.Errorf("either --token or --username is required")
		}
		return client, nil
	}

	password, err := promptPassword("Password for " + username + ": ")
	if err != nil {
		return nil, err
	}
	if _, err := client.Login(cmd.Context(), username, password); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	return client, nil
}

func runSamplesList(cmd *cobra.Command, args []string) error {
	filter, err := filterFromFlags(cmd.Flags())
	if err != nil {
		return err
	}

	fs := cmd.Flags()
	page, _ := fs.GetInt("page")
	limit, _ := fs.GetInt("limit")
	sortBy, _ := fs.GetString("sort-by")
	sortOrder, _ := fs.GetString("sort-order")

	client, err := newAPIClient(cmd)
	if err != nil {
		return err
	}

	list, err := client.ListSamples(cmd.Context(), api.ListOptions{
		Filter: filter,
		Pagination: models.Pagination{
			Page:          page,
			PageSize:      limit,
			SortField:     sortBy,
			SortDirection: models.SortDirection(sortOrder),
		},
	})
	if err != nil {
		return err
	}

	if len(list.Samples) == 0 {
		fmt.Println("No samples found.")
	} else {
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tLOCATION\tDATE\tHMPI\tSTATUS\tCOLLECTOR")
		for _, s := range list.Samples {
			collector := "-"
			if s.Collector != nil {
				collector = s.Collector.Username
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\t%s\n",
				s.ID, s.Location, s.SampleDate.Format(models.DateLayout), s.IndexValue, s.Status, collector)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	p := list.Pagination
	fmt.Printf("\nPage %d of %d (%d per page, %d total)\n", p.Page, p.TotalPages, p.Limit, p.Total)
	return nil
}

func runSamplesStats(cmd *cobra.Command, args []string) error {
	filter, err := filterFromFlags(cmd.Flags())
	if err != nil {
		return err
	}

	client, err := newAPIClient(cmd)
	if err != nil {
		return err
	}

	st, err := client.Statistics(cmd.Context(), filter)
	if err != nil {
		return err
	}

	fmt.Printf("Samples:   %d\n", st.Total)
	fmt.Printf("  safe:     %d\n", st.Safe)
	fmt.Printf("  marginal: %d\n", st.Marginal)
	fmt.Printf("  high:     %d\n", st.High)
	fmt.Printf("Avg HMPI:  %.2f\n", st.AvgHMPI)
	fmt.Printf("Avg Cu/Pb/Cd/Zn (mg/L): %.4f / %.4f / %.4f / %.4f\n", st.AvgCu, st.AvgPb, st.AvgCd, st.AvgZn)
	return nil
}

func runSamplesGet(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid sample id: %w", err)
	}

	client, err := newAPIClient(cmd)
	if err != nil {
		return err
	}

	s, err := client.GetSample(cmd.Context(), id)
	if err != nil {
		return err
	}

	fmt.Printf("ID:          %s\n", s.ID)
	fmt.Printf("Location:    %s (%.5f, %.5f)\n", s.Location, s.Latitude, s.Longitude)
	fmt.Printf("Sample date: %s\n", s.SampleDate.Format(models.DateLayout))
	fmt.Printf("Cu/Pb/Cd/Zn: %g / %g / %g / %g mg/L\n", s.Cu, s.Pb, s.Cd, s.Zn)
	fmt.Printf("HMPI:        %.2f (%s)\n", s.IndexValue, s.Status)
	if c := s.Collector; c != nil {
		fmt.Printf("Collector:   %s (%s)\n", c.Username, c.Name)
	}
	if s.Notes != "" {
		fmt.Printf("Notes:       %s\n", s.Notes)
	}
	return nil
}
