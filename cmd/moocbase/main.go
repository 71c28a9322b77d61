// moocbase - query execution playground
// Runs example operator plans over an in-memory database

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	godb "github.com/foxtrot9/fa20-moocbase"
	"github.com/foxtrot9/fa20-moocbase/common"
	"github.com/foxtrot9/fa20-moocbase/config"
	"github.com/foxtrot9/fa20-moocbase/logger"
	"github.com/foxtrot9/fa20-moocbase/query"
	"github.com/foxtrot9/fa20-moocbase/transaction"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "moocbase",
		Short: "moocbase - relational query execution",
		Long: `moocbase builds relational operator trees (scans, selects, projections,
group-bys and joins) over an example Students/Courses/Enrollments database
and runs them.

Run the example plan with a block nested loop join:
  moocbase demo --join bnlj`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("moocbase %s\n", version)
		},
	})
	rootCmd.AddCommand(newDemoCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type demoOptions struct {
	join   string
	minGPA float32
	limit  int
}

func newDemoCommand() *cobra.Command {
	opts := &demoOptions{}
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Join students with a minimum gpa to the courses they take",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.join, "join", "", "join strategy: snlj, pnlj, bnlj or sortmerge (default from config)")
	cmd.Flags().Float32Var(&opts.minGPA, "min-gpa", 3.5, "only students with at least this gpa")
	cmd.Flags().IntVar(&opts.limit, "limit", 20, "print at most this many rows, 0 for all")
	return cmd
}

func runDemo(cmd *cobra.Command, opts *demoOptions) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return errors.Wrap(err, "loading config")
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	if err != nil {
		return errors.Wrap(err, "initializing logger")
	}
	defer func() { _ = log.Sync() }()

	name := opts.join
	if name == "" {
		name = cfg.Query.DefaultJoin
	}
	joinType, ok := query.ParseJoinType(name)
	if !ok {
		return errors.Newf("unknown join strategy %q", name)
	}

	db, err := godb.NewDatabase(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	if err := godb.LoadExampleData(db); err != nil {
		return errors.Wrap(err, "loading example data")
	}

	txn := db.BeginTransaction()
	plan, err := buildDemoPlan(txn, joinType, opts.minGPA)
	if err != nil {
		return errors.CombineErrors(err, db.Commit(txn))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n\nestimated records: %d\n\n", plan.String(), plan.Stats().NumRecords())
	fmt.Fprintln(out, strings.Join(plan.OutputSchema().FieldNames(), " | "))

	n, err := printRows(out, plan, opts.limit)
	if err != nil {
		return errors.CombineErrors(err, db.Commit(txn))
	}
	fmt.Fprintf(out, "(%d rows)\n", n)
	log.Info("demo finished", "join", joinType.String(), "rows", n)
	return db.Commit(txn)
}

// buildDemoPlan builds
//
//	project(Students.name, Courses.name,
//	    (select(Students, gpa >= minGPA) JOIN Enrollments ON sid) JOIN Courses ON cid)
func buildDemoPlan(txn transaction.Context, joinType query.JoinType, minGPA float32) (query.Operator, error) {
	students, err := query.NewSequentialScanOperator(txn, "Students")
	if err != nil {
		return nil, err
	}
	enrollments, err := query.NewSequentialScanOperator(txn, "Enrollments")
	if err != nil {
		return nil, err
	}
	courses, err := query.NewSequentialScanOperator(txn, "Courses")
	if err != nil {
		return nil, err
	}

	good, err := query.NewSelectOperator(students, "gpa", common.GreaterThanEquals, common.NewFloatValue(minGPA))
	if err != nil {
		return nil, err
	}
	taking, err := query.NewJoinOperator(joinType, good, enrollments, "Students.sid", "Enrollments.sid", txn)
	if err != nil {
		return nil, err
	}
	withCourses, err := query.NewJoinOperator(joinType, taking, courses, "Enrollments.cid", "Courses.cid", txn)
	if err != nil {
		return nil, err
	}
	return query.NewProjectOperator(withCourses, []string{"Students.name", "Courses.name"})
}

func printRows(out io.Writer, plan query.Operator, limit int) (n int, err error) {
	it, err := plan.Iterator()
	if err != nil {
		return 0, err
	}
	defer func() { err = errors.CombineErrors(err, it.Close()) }()

	for it.Next() {
		if limit == 0 || n < limit {
			record := it.Current()
			fmt.Fprintln(out, record.String())
		}
		n++
	}
	return n, it.Error()
}
