package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
	"strings"
)

//go:embed init.sql
var initSQL string

//go:embed knowledge.sql
var knowledgeSQL string

//go:embed documents.sql
var documentsSQL string

//go:embed chunks.sql
var chunksSQL string

//go:embed graph.cypher
var graphCypher string

// Function lists for verification
var KnowledgeFunctions = []string{
	"init_knowledge",
	"insert_knowledge",
	"search_knowledge_by_embedding",
	"search_knowledge_by_text",
	"delete_knowledge",
}

var DocumentsFunctions = []string{
	"init_documents",
	"insert_document",
	"select_document",
	"delete_document",
}

var ChunksFunctions = []string{
	"init_chunks",
	"insert_chunk",
	"search_chunks_by_embedding",
	"search_chunks_by_text",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadKnowledgeSql loads knowledge-related SQL functions
func LoadKnowledgeSql(db *sql.DB, force bool) error {
	return loadFunctions(db, "knowledge", knowledgeSQL, KnowledgeFunctions, force)
}

// LoadDocumentsSql loads document-related SQL functions
func LoadDocumentsSql(db *sql.DB, force bool) error {
	return loadFunctions(db, "documents", documentsSQL, DocumentsFunctions, force)
}

// LoadChunksSql loads chunk-related SQL functions
func LoadChunksSql(db *sql.DB, force bool) error {
	return loadFunctions(db, "chunks", chunksSQL, ChunksFunctions, force)
}

// GraphSchemaStatements returns the graph store schema statements in file order.
// Lines starting with // are comments.
func GraphSchemaStatements() []string {
	var lines []string
	for _, line := range strings.Split(graphCypher, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "//") {
			continue
		}
		lines = append(lines, line)
	}

	var statements []string
	for _, stmt := range strings.Split(strings.Join(lines, "\n"), ";") {
		stmt = strings.Join(strings.Fields(stmt), " ")
		if stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}

func loadFunctions(db *sql.DB, name string, script string, functions []string, force bool) error {
	if !force {
		exist, err := checkFunctions(db, functions)
		if err != nil {
			return fmt.Errorf("error checking existing %s functions: %w", name, err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(script)
	if err != nil {
		return fmt.Errorf("error executing %s SQL: %w", name, err)
	}

	exist, err := checkFunctions(db, functions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Printf("SQL %s functions loaded successfully", name)
	return nil
}

func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
