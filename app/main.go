package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Timestamp().Logger()

// Usage: your_program <database_file> (.dbinfo | .tables | "<select-sql>")
func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: your_program <database_file> <command>")
		os.Exit(exitCodeFor(KindInvalidArgs))
	}

	databaseFilePath := os.Args[1]
	command := os.Args[2]

	db, err := NewDatabase(databaseFilePath)
	if err != nil {
		fail("open_database", err)
	}
	defer db.Close()

	switch {
	case command == ".dbinfo":
		runDbInfo(db)
	case command == ".tables":
		runTables(db)
	default:
		runQuery(db, command)
	}
}

func runDbInfo(db *DatabaseImpl) {
	header := db.dbRaw.GetHeader()
	fmt.Printf("database page size: %v\n", header.GetActualPageSize())

	schemas, err := db.LoadSchema()
	if err != nil {
		fail("load_schema", err)
	}
	tableCount := 0
	for _, s := range schemas {
		if s.Type == "table" {
			tableCount++
		}
	}
	fmt.Printf("number of tables: %v\n", tableCount)
}

// runTables prints every table name in master-page order, sqlite_sequence
// included (§8 scenario #2: ".tables" on apples/oranges/sqlite_sequence
// prints "apples oranges sqlite_sequence", not a filtered, sorted list).
func runTables(db *DatabaseImpl) {
	names, err := db.GetTableNames()
	if err != nil {
		fail("get_tables", err)
	}
	fmt.Println(strings.Join(names, " "))
}

func runQuery(db *DatabaseImpl, sql string) {
	engine := NewEngine(db)
	result, err := engine.RunQuery(sql)
	if err != nil {
		fail("run_query", err)
	}
	formatter := NewConsoleFormatter(os.Stdout)
	output := formatter.FormatResult(result)
	if output != "" {
		fmt.Println(output)
	}
}

// fail logs a structured diagnostic and exits with the code matching the
// error's Kind (§7: the CLI maps Kind to an exit code and a one-line
// message, never a stack trace).
func fail(operation string, err error) {
	kind := KindUnknown
	var dbErr *DatabaseError
	if errors.As(err, &dbErr) {
		kind = dbErr.Kind
	}
	logger.Error().Str("operation", operation).Str("kind", kind.String()).Err(err).Msg("query failed")
	os.Exit(exitCodeFor(kind))
}

func exitCodeFor(kind ErrorKind) int {
	switch kind {
	case KindInvalidArgs:
		return 2
	case KindIO:
		return 3
	case KindMalformedFile:
		return 4
	case KindUnsupportedFeature:
		return 5
	case KindPlanError:
		return 6
	default:
		return 1
	}
}
