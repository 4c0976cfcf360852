package benchmark

import (
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/cybervault/cybervault/internal/events"
	"github.com/cybervault/cybervault/internal/index"
	"github.com/cybervault/cybervault/internal/models"
	"github.com/cybervault/cybervault/internal/storage"
)

func benchRecord(i int) *models.FileRecord {
	return &models.FileRecord{
		ID:       uuid.New().String(),
		Name:     fmt.Sprintf("file-%04d.txt", i),
		Size:     1024,
		Payload:  models.Payload{Ref: uuid.New().String()},
		Salt:     make([]byte, models.SaltSize),
		IV:       make([]byte, models.NonceSize),
		Checksum: "0000000000000000000000000000000000000000000000000000000000000000",
	}
}

func BenchmarkBlobWrite(b *testing.B) {
	store, err := storage.NewLocalStore(b.TempDir(), events.Discard())
	if err != nil {
		b.Fatal(err)
	}
	data := randomBytes(b, 64<<10)

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if err := store.Write(fmt.Sprintf("blob-%d", i), data); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBlobRead(b *testing.B) {
	store, err := storage.NewLocalStore(b.TempDir(), events.Discard())
	if err != nil {
		b.Fatal(err)
	}
	data := randomBytes(b, 64<<10)
	if err := store.Write("blob", data); err != nil {
		b.Fatal(err)
	}

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := store.Read("blob"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkIndexUpsert(b *testing.B) {
	for _, driver := range []string{"json", "sqlite"} {
		b.Run(driver, func(b *testing.B) {
			var store index.Store
			var err error
			if driver == "json" {
				store, err = index.NewJSONStore(b.TempDir(), events.Discard())
			} else {
				store, err = index.NewSQLiteStore(b.TempDir()+"/bench.db", events.Discard())
			}
			if err != nil {
				b.Fatal(err)
			}
			defer store.Close()

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				if err := store.Upsert("bench@example.com", benchRecord(i)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkIndexLoad(b *testing.B) {
	for _, driver := range []string{"json", "sqlite"} {
		b.Run(driver, func(b *testing.B) {
			var store index.Store
			var err error
			if driver == "json" {
				store, err = index.NewJSONStore(b.TempDir(), events.Discard())
			} else {
				store, err = index.NewSQLiteStore(b.TempDir()+"/bench.db", events.Discard())
			}
			if err != nil {
				b.Fatal(err)
			}
			defer store.Close()

			idx := models.NewVaultIndex("bench@example.com")
			for i := 0; i < 500; i++ {
				idx.Upsert(benchRecord(i))
			}
			if err := store.Save("bench@example.com", idx); err != nil {
				b.Fatal(err)
			}

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				if _, err := store.Load("bench@example.com"); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
