// Package sql provides tokenizing and parsing of the PrimitiveDB command
// language.
//
// The lexer splits a command line into words, quoted strings and the
// punctuation the grammar cares about (= , ( )). The parser turns the token
// sequence into a Statement; the clause helpers extract WHERE predicates,
// SET assignments and INSERT value lists from any token sequence.
//
// # Lexer Usage
//
//	lexer := sql.NewLexer(`select from users where name = "Ann Lee"`)
//	for {
//	    token := lexer.NextToken()
//	    if token.Type == sql.EOF {
//	        break
//	    }
//	    fmt.Printf("Token: %s = %s\n", token.Type, token.Value)
//	}
//
// # Parser Usage
//
//	parser := sql.NewParser("update users set age = 31 where name = Alice")
//	statement, err := parser.Parse()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Supported Statements
//
//   - CreateTableStatement: create_table <table> <column:type>...
//   - DropTableStatement: drop_table <table>
//   - ListTablesStatement: list_tables
//   - InsertStatement: insert into <table> values (<value>, ...)
//   - SelectStatement: select from <table> [where <column> = <value>]
//   - UpdateStatement: update <table> set <column> = <value>[, ...] where <column> = <value>
//   - DeleteStatement: delete from <table> where <column> = <value>
//   - InfoStatement: info <table>
//   - HistoryStatement: history [<limit>]
//   - RestoreStatement: restore <transaction|snapshot>
//   - SnapshotStatement: snapshot <name>
//   - AddRemoteStatement: add_remote [<name>] <url>
//   - ListRemotesStatement: list_remotes
//   - PushStatement, PullStatement: push|pull [<remote>]
//   - ExportStatement, ImportStatement: export|import <table> <url>
package sql
