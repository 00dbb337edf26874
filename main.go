package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	_ "github.com/lib/pq"
	"github.com/olekukonko/tablewriter"

	"github.com/invdb/agent/config"
	"github.com/invdb/agent/executor"
	"github.com/invdb/agent/nlquery"
	"github.com/invdb/agent/schema"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := sql.Open("postgres", cfg.Database.ConnString())
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}

	ctx := context.Background()
	cache := schema.NewCache(db)
	if _, err := cache.Get(ctx); err != nil {
		log.Fatalf("Error reading database schema: %v", err)
	}

	keys := nlquery.NewKeyManager()
	if !keys.HasKeys() {
		log.Fatal("GEMINI_API_KEY not set")
	}

	model, err := nlquery.NewGeminiModel(ctx, keys.NextKey(), cfg.Model.Name, cfg.Model.Temperature)
	if err != nil {
		log.Fatal(err)
	}
	defer model.Close()

	runner := executor.New(db, cfg.Query.Timeout, cfg.Query.DisplayCap)
	bounded := nlquery.TimeoutModel{Model: model, Timeout: cfg.Model.CallTimeout}
	engine := nlquery.NewEngine(bounded, runner, cfg.Query.MaxAttempts)

	repl(ctx, cfg, engine, cache)
}

func repl(ctx context.Context, cfg *config.Config, engine *nlquery.Engine, cache *schema.Cache) {
	color.Cyan("=== Inventory Database Assistant ===")
	fmt.Println("Ask a question in plain English, or use a command:")
	fmt.Println("  \\sql            toggle display of the generated SQL")
	fmt.Println("  \\refresh        reload the database schema")
	fmt.Println("  \\export <file>  write the last result to a CSV file")
	fmt.Println("  \\quit           exit")

	showSQL := false
	var lastResult *executor.Result

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nask> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "\\quit" || line == "\\q":
			color.Green("Goodbye!")
			return
		case line == "\\sql":
			showSQL = !showSQL
			fmt.Printf("SQL display %s\n", onOff(showSQL))
			continue
		case line == "\\refresh":
			if _, err := cache.Refresh(ctx); err != nil {
				color.Red("Schema refresh failed: %v", err)
			} else {
				color.Green("Schema reloaded")
			}
			continue
		case strings.HasPrefix(line, "\\export"):
			exportCSV(strings.TrimSpace(strings.TrimPrefix(line, "\\export")), lastResult)
			continue
		}

		desc, err := cache.Get(ctx)
		if err != nil {
			color.Red("Schema unavailable: %v", err)
			continue
		}

		resp, failure := engine.Run(ctx, line, desc)
		if failure != nil {
			displayFailure(failure)
			continue
		}

		if showSQL {
			color.Cyan("\n%s", resp.SQL)
		}
		displayResult(resp, cfg.Query.DisplayCap)
		lastResult = resp.Result
	}
}

func displayFailure(failure *nlquery.Failure) {
	color.Red("%s", failure.Message)
	for _, v := range failure.Violations {
		color.Red("  - %s", v)
	}
}

func displayResult(resp *nlquery.Response, displayCap int) {
	result := resp.Result

	if result.RowCount == 0 {
		fmt.Println("No results found")
	} else {
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader(result.Columns)
		table.SetAutoFormatHeaders(true)
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		table.SetCenterSeparator("")
		table.SetColumnSeparator("")
		table.SetRowSeparator("")
		table.SetHeaderLine(false)
		table.SetBorder(false)
		table.SetTablePadding("\t")
		table.SetNoWhiteSpace(true)

		for _, row := range result.Rows {
			cells := make([]string, len(row))
			for i, val := range row {
				cells[i] = formatValue(val)
			}
			table.Append(cells)
		}
		table.Render()
	}

	if result.Truncated {
		color.Yellow("Showing the first %d rows; the query returned more.", displayCap)
	}
	fmt.Printf("%d rows in %.3fs\n", result.RowCount, result.Elapsed.Seconds())

	if resp.Insight != "" {
		color.Green("\n%s", resp.Insight)
	}
	for _, warning := range resp.Warnings {
		color.Yellow("warning: %s", warning)
	}
}

func exportCSV(path string, result *executor.Result) {
	if result == nil {
		color.Red("No result to export; run a query first")
		return
	}
	if path == "" {
		color.Red("Usage: \\export <file>")
		return
	}

	f, err := os.Create(path)
	if err != nil {
		color.Red("Error creating %s: %v", path, err)
		return
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(result.Columns); err != nil {
		color.Red("Error writing CSV: %v", err)
		return
	}
	for _, row := range result.Rows {
		cells := make([]string, len(row))
		for i, val := range row {
			cells[i] = formatValue(val)
		}
		if err := w.Write(cells); err != nil {
			color.Red("Error writing CSV: %v", err)
			return
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		color.Red("Error writing CSV: %v", err)
		return
	}

	color.Green("Wrote %d rows to %s", result.RowCount, path)
}

func formatValue(val any) string {
	if val == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", val)
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}
