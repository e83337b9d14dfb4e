package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"time"

	"github.com/poiesic/cruisekb/source/sqlsource"
)

// seedCruise is one line of a seed file.
type seedCruise struct {
	ID      string          `json:"id"`
	Code    string          `json:"code"`
	Enabled *bool           `json:"enabled"`
	Info    json.RawMessage `json:"info"`
	Facts   []seedFact      `json:"facts"`
}

type seedFact struct {
	RangeID string          `json:"range_id"`
	Info    json.RawMessage `json:"info"`
}

var routes = []struct {
	name   string
	river  string
	start  string
	end    string
	cities []string
}{
	{"Danube Highlights", "Danube", "Passau", "Budapest", []string{"Linz", "Vienna", "Bratislava"}},
	{"Rhine Castles", "Rhine", "Basel", "Amsterdam", []string{"Strasbourg", "Koblenz", "Cologne"}},
	{"Volga Classic", "Volga", "Moscow", "Astrakhan", []string{"Uglich", "Yaroslavl", "Kazan", "Samara"}},
	{"Douro Valley", "Douro", "Porto", "Vega de Terron", []string{"Regua", "Pinhao"}},
	{"Seine Impressions", "Seine", "Paris", "Honfleur", []string{"Vernon", "Rouen"}},
	{"Adriatic Coast", "", "Venice", "Dubrovnik", []string{"Split", "Kotor"}},
}

var (
	dbPath       = flag.String("db", "./catalog.db", "SQLite catalog to write")
	seedFileName = flag.String("src", "", "file of seed cruises, one JSON object per line")
	count        = flag.Int("n", 24, "number of generated cruises when no seed file is given")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}

// cruisesFromFile returns an iterator over the cruises in a seed file.
func cruisesFromFile(filename string) (iter.Seq2[seedCruise, error], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	return func(yield func(seedCruise, error) bool) {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for line := 1; scanner.Scan(); line++ {
			if len(scanner.Bytes()) == 0 {
				continue
			}
			var c seedCruise
			if err := json.Unmarshal(scanner.Bytes(), &c); err != nil {
				if !yield(c, fmt.Errorf("line %d: %w", line, err)) {
					return
				}
				continue
			}
			if !yield(c, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(seedCruise{}, err)
		}
	}, nil
}

// generatedCruises returns n demo cruises departing over the coming months.
func generatedCruises(n int, today time.Time) iter.Seq2[seedCruise, error] {
	return func(yield func(seedCruise, error) bool) {
		for i := range n {
			route := routes[i%len(routes)]
			id := fmt.Sprint(1000 + i)

			itinerary := make([]map[string]any, 0, len(route.cities))
			for _, city := range route.cities {
				itinerary = append(itinerary, map[string]any{
					"city": map[string]any{"name_i18n": map[string]string{"en": city}},
				})
			}
			info := map[string]any{
				"cruise": map[string]any{
					"name_i18n":   map[string]string{"en": fmt.Sprintf("%s %d", route.name, i/len(routes)+1)},
					"description": fmt.Sprintf("A journey from %s to %s.", route.start, route.end),
				},
				"portMaybe":     map[string]any{"name_i18n": map[string]string{"en": route.start}},
				"lastPortMaybe": map[string]any{"name_i18n": map[string]string{"en": route.end}},
				"itineraries":   itinerary,
			}
			if route.river != "" {
				info["rivers"] = []map[string]any{{"name_i18n": map[string]string{"en": route.river}}}
			}

			c := seedCruise{ID: id, Code: fmt.Sprintf("CR%04d", i)}
			c.Info, _ = json.Marshal(info)

			// One departure already sailed, then two upcoming ones.
			for j, offset := range []int{-1, i%12 + 1, i%12 + 3} {
				begin := today.AddDate(0, offset, 0)
				fact, _ := json.Marshal(map[string]any{
					"minPrice": map[string]float64{"2": float64(600 + 50*((i+j)%10))},
					"dateRange": map[string]string{
						"begin_date": begin.Format(time.DateOnly),
						"end_date":   begin.AddDate(0, 0, 7).Format(time.DateOnly),
					},
				})
				c.Facts = append(c.Facts, seedFact{RangeID: fmt.Sprintf("%s%d", id, j), Info: fact})
			}

			if !yield(c, nil) {
				return
			}
		}
	}
}

// seed writes every cruise from cruises into the catalog.
func seed(ctx context.Context, w *sqlsource.Writer, cruises iter.Seq2[seedCruise, error]) (int, error) {
	var written int
	for c, err := range cruises {
		if err != nil {
			slog.Warn("skipping seed record", "err", err)
			continue
		}
		enabled := c.Enabled == nil || *c.Enabled
		if err := w.PutEntity(ctx, c.ID, c.Code, string(c.Info), enabled); err != nil {
			return written, err
		}
		for _, f := range c.Facts {
			if err := w.PutFact(ctx, c.ID, f.RangeID, string(f.Info)); err != nil {
				return written, err
			}
		}
		written++
	}
	return written, nil
}

func main() {
	flag.Parse()
	ctx := context.Background()

	db, err := sql.Open(sqlsource.DriverSQLite, *dbPath)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	if err := sqlsource.InitSQLiteSchema(ctx, db); err != nil {
		panic(err)
	}

	// Determine source of seed data
	var cruises iter.Seq2[seedCruise, error]
	if seedFileName != nil && *seedFileName != "" {
		cruises, err = cruisesFromFile(*seedFileName)
		if err != nil {
			panic(err)
		}
	} else {
		cruises = generatedCruises(*count, time.Now().UTC())
	}

	n, err := seed(ctx, sqlsource.NewWriter(db), cruises)
	if err != nil {
		panic(err)
	}
	slog.Info("catalog seeded", "path", *dbPath, "cruises", n)
}
