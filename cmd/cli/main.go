package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/alextreichler/flowershop/internal/auth"
	"github.com/alextreichler/flowershop/internal/importer"
	"github.com/alextreichler/flowershop/internal/search"
	"github.com/alextreichler/flowershop/internal/store"
)

const usage = "expected one of: hash-password, issue-token, migrate, import, search"

func main() {
	hashCmd := flag.NewFlagSet("hash-password", flag.ExitOnError)
	password := hashCmd.String("password", "", "Admin password to hash for ADMIN_PASSWORD_HASH")

	tokenCmd := flag.NewFlagSet("issue-token", flag.ExitOnError)
	secret := tokenCmd.String("secret", os.Getenv("ADMIN_SESSION_SECRET"), "Admin session secret")

	migrateCmd := flag.NewFlagSet("migrate", flag.ExitOnError)
	migrateDB := migrateCmd.String("db", databaseURL(), "SQLite path or postgres:// URL")

	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importDB := importCmd.String("db", databaseURL(), "SQLite path or postgres:// URL")
	importFile := importCmd.String("file", "", "xlsx file with name, description, price, discount columns")

	searchCmd := flag.NewFlagSet("search", flag.ExitOnError)
	query := searchCmd.String("q", "", "Search query")
	name := searchCmd.String("name", "", "Item name to match against")
	description := searchCmd.String("description", "", "Item description to match against")

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "hash-password":
		hashCmd.Parse(os.Args[2:])
		if *password == "" {
			fmt.Println("password is required")
			hashCmd.PrintDefaults()
			os.Exit(1)
		}
		hashPassword(*password)
	case "issue-token":
		tokenCmd.Parse(os.Args[2:])
		issueToken(*secret)
	case "migrate":
		migrateCmd.Parse(os.Args[2:])
		migrate(*migrateDB)
	case "import":
		importCmd.Parse(os.Args[2:])
		if *importFile == "" {
			fmt.Println("file is required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		importProducts(*importDB, *importFile)
	case "search":
		searchCmd.Parse(os.Args[2:])
		runSearch(*query, *name, *description)
	default:
		fmt.Println(usage)
		os.Exit(1)
	}
}

func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return "./flowershop.db"
}

func hashPassword(password string) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}
	fmt.Println(string(hashed))
}

func issueToken(secret string) {
	codec, err := auth.NewCodec([]byte(secret))
	if err != nil {
		log.Fatalf("Failed to create codec: %v", err)
	}
	token, err := codec.Issue()
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Println(token)
}

func openStore(url string) *store.Store {
	db, err := store.NewStore(url)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func migrate(url string) {
	db := openStore(url)
	defer db.Close()
	fmt.Println("Migrations applied.")
}

func importProducts(url, path string) {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", path, err)
	}
	defer f.Close()

	res, err := importer.ReadProducts(f)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", path, err)
	}
	for _, skipped := range res.Skipped {
		fmt.Printf("row %d skipped: %s\n", skipped.Row, skipped.Reason)
	}

	db := openStore(url)
	defer db.Close()

	n, err := db.ImportProducts(context.Background(), res.Products)
	if err != nil {
		log.Fatalf("Failed to import products: %v", err)
	}
	fmt.Printf("%d products imported.\n", n)
}

func runSearch(query, name, description string) {
	m := search.Default()
	fmt.Printf("terms: %v\n", m.Expand(query))
	fmt.Printf("match: %t\n", m.Matches(name, description, query))
}
