package sql

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nickyhof/PrimitiveDB/core"
)

var (
	ErrSyntax         = errors.New("syntax error")
	ErrUnknownCommand = errors.New("unknown command")
)

type StatementType int

const (
	CreateTableStatementType StatementType = iota
	DropTableStatementType
	ListTablesStatementType
	InsertStatementType
	SelectStatementType
	UpdateStatementType
	DeleteStatementType
	InfoStatementType
	HistoryStatementType
	RestoreStatementType
	ExportStatementType
	ImportStatementType
	SnapshotStatementType
	AddRemoteStatementType
	ListRemotesStatementType
	PushStatementType
	PullStatementType
)

func (t StatementType) String() string {
	switch t {
	case CreateTableStatementType:
		return "create_table"
	case DropTableStatementType:
		return "drop_table"
	case ListTablesStatementType:
		return "list_tables"
	case InsertStatementType:
		return "insert"
	case SelectStatementType:
		return "select"
	case UpdateStatementType:
		return "update"
	case DeleteStatementType:
		return "delete"
	case InfoStatementType:
		return "info"
	case HistoryStatementType:
		return "history"
	case RestoreStatementType:
		return "restore"
	case ExportStatementType:
		return "export"
	case ImportStatementType:
		return "import"
	case SnapshotStatementType:
		return "snapshot"
	case AddRemoteStatementType:
		return "add_remote"
	case ListRemotesStatementType:
		return "list_remotes"
	case PushStatementType:
		return "push"
	case PullStatementType:
		return "pull"
	default:
		return fmt.Sprintf("StatementType(%d)", int(t))
	}
}

type Statement interface {
	Type() StatementType
}

type CreateTableStatement struct {
	Table   string
	Columns []string // "name:type" specs, validated by op.CreateTable
}

type DropTableStatement struct {
	Table string
}

type ListTablesStatement struct{}

type InsertStatement struct {
	Table  string
	Values []string
}

type SelectStatement struct {
	Table string
	Where core.Predicate
}

type UpdateStatement struct {
	Table string
	Set   map[string]string
	Where core.Predicate
}

type DeleteStatement struct {
	Table string
	Where core.Predicate
}

type InfoStatement struct {
	Table string
}

type HistoryStatement struct {
	Limit int // 0 means all
}

type RestoreStatement struct {
	Target string // transaction id, id prefix or snapshot name
}

type SnapshotStatement struct {
	Name string
}

type AddRemoteStatement struct {
	Name string
	URL  string
}

type ListRemotesStatement struct{}

type PushStatement struct {
	Remote string // empty means origin
}

type PullStatement struct {
	Remote string
}

type ExportStatement struct {
	Table string
	URL   string
}

type ImportStatement struct {
	Table string
	URL   string
}

func (s CreateTableStatement) Type() StatementType { return CreateTableStatementType }
func (s DropTableStatement) Type() StatementType   { return DropTableStatementType }
func (s ListTablesStatement) Type() StatementType  { return ListTablesStatementType }
func (s InsertStatement) Type() StatementType      { return InsertStatementType }
func (s SelectStatement) Type() StatementType      { return SelectStatementType }
func (s UpdateStatement) Type() StatementType      { return UpdateStatementType }
func (s DeleteStatement) Type() StatementType      { return DeleteStatementType }
func (s InfoStatement) Type() StatementType        { return InfoStatementType }
func (s HistoryStatement) Type() StatementType     { return HistoryStatementType }
func (s RestoreStatement) Type() StatementType     { return RestoreStatementType }
func (s ExportStatement) Type() StatementType      { return ExportStatementType }
func (s ImportStatement) Type() StatementType      { return ImportStatementType }
func (s SnapshotStatement) Type() StatementType    { return SnapshotStatementType }
func (s AddRemoteStatement) Type() StatementType   { return AddRemoteStatementType }
func (s ListRemotesStatement) Type() StatementType { return ListRemotesStatementType }
func (s PushStatement) Type() StatementType        { return PushStatementType }
func (s PullStatement) Type() StatementType        { return PullStatementType }

type Parser struct {
	lexer *Lexer
}

func NewParser(command string) *Parser {
	return &Parser{lexer: NewLexer(command)}
}

func (parser *Parser) Parse() (Statement, error) {
	if err := parser.lexer.Err(); err != nil {
		return nil, err
	}

	token := parser.lexer.NextToken()
	if token.Type == EOF {
		return nil, fmt.Errorf("%w: empty command", ErrSyntax)
	}
	if token.Type != Word {
		return nil, fmt.Errorf("%w: unexpected %q at start of command", ErrSyntax, token.Value)
	}

	switch strings.ToLower(token.Value) {
	case "create_table":
		return ParseCreateTable(parser)
	case "drop_table":
		table, err := parser.expectName("table name")
		if err != nil {
			return nil, err
		}
		return DropTableStatement{Table: table}, parser.expectEnd()
	case "list_tables":
		return ListTablesStatement{}, parser.expectEnd()
	case "insert":
		return ParseInsert(parser)
	case "select":
		return ParseSelect(parser)
	case "update":
		return ParseUpdate(parser)
	case "delete":
		return ParseDelete(parser)
	case "info":
		table, err := parser.expectName("table name")
		if err != nil {
			return nil, err
		}
		return InfoStatement{Table: table}, parser.expectEnd()
	case "history":
		return ParseHistory(parser)
	case "restore":
		target, err := parser.expectName("transaction id or snapshot name")
		if err != nil {
			return nil, err
		}
		return RestoreStatement{Target: target}, parser.expectEnd()
	case "snapshot":
		name, err := parser.expectName("snapshot name")
		if err != nil {
			return nil, err
		}
		return SnapshotStatement{Name: name}, parser.expectEnd()
	case "export":
		table, url, err := parser.tableAndURL()
		return ExportStatement{Table: table, URL: url}, err
	case "import":
		table, url, err := parser.tableAndURL()
		return ImportStatement{Table: table, URL: url}, err
	case "add_remote":
		return ParseAddRemote(parser)
	case "list_remotes":
		return ListRemotesStatement{}, parser.expectEnd()
	case "push":
		remote, err := parser.optionalName()
		return PushStatement{Remote: remote}, err
	case "pull":
		remote, err := parser.optionalName()
		return PullStatement{Remote: remote}, err
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, token.Value)
	}
}

func ParseCreateTable(parser *Parser) (Statement, error) {
	table, err := parser.expectName("table name")
	if err != nil {
		return nil, err
	}

	columns := []string{}
	for _, token := range parser.lexer.Remaining() {
		switch {
		case token.Type == EOF, token.Type == Comma:
			continue
		case isValue(token):
			columns = append(columns, token.Value)
		default:
			return nil, fmt.Errorf("%w: unexpected %q in column list", ErrSyntax, token.Value)
		}
	}

	return CreateTableStatement{Table: table, Columns: columns}, nil
}

func ParseInsert(parser *Parser) (Statement, error) {
	if err := parser.expectKeyword("into"); err != nil {
		return nil, err
	}

	table, err := parser.expectName("table name")
	if err != nil {
		return nil, err
	}

	if !isKeyword(parser.lexer.PeekToken(), "values") {
		return nil, fmt.Errorf("%w: expected VALUES after table name", ErrSyntax)
	}

	values, err := ParseInsertValues(parser.lexer.Remaining())
	if err != nil {
		return nil, err
	}

	return InsertStatement{Table: table, Values: values}, nil
}

func ParseSelect(parser *Parser) (Statement, error) {
	if err := parser.expectKeyword("from"); err != nil {
		return nil, err
	}

	table, where, err := parser.tableAndWhere()
	if err != nil {
		return nil, err
	}

	return SelectStatement{Table: table, Where: where}, nil
}

func ParseDelete(parser *Parser) (Statement, error) {
	if err := parser.expectKeyword("from"); err != nil {
		return nil, err
	}

	table, where, err := parser.tableAndWhere()
	if err != nil {
		return nil, err
	}

	return DeleteStatement{Table: table, Where: where}, nil
}

func ParseUpdate(parser *Parser) (Statement, error) {
	table, err := parser.expectName("table name")
	if err != nil {
		return nil, err
	}

	rest := parser.lexer.Remaining()
	if next := rest[0]; next.Type != EOF && !isKeyword(next, "set") && !isKeyword(next, "where") {
		return nil, fmt.Errorf("%w: expected SET after table name, got %q", ErrSyntax, next.Value)
	}

	set, setEnd, err := scanSetClause(rest)
	if err != nil {
		return nil, err
	}

	where, err := ParseWhereClause(rest[setEnd:])
	if err != nil {
		return nil, err
	}

	return UpdateStatement{Table: table, Set: set, Where: where}, nil
}

func ParseHistory(parser *Parser) (Statement, error) {
	token := parser.lexer.NextToken()
	if token.Type == EOF {
		return HistoryStatement{}, nil
	}

	limit, err := strconv.Atoi(token.Value)
	if err != nil || limit < 0 {
		return nil, fmt.Errorf("%w: history limit must be a non-negative integer, got %q", ErrSyntax, token.Value)
	}

	return HistoryStatement{Limit: limit}, parser.expectEnd()
}

// ParseAddRemote accepts "add_remote <url>" or "add_remote <name> <url>".
func ParseAddRemote(parser *Parser) (Statement, error) {
	first, err := parser.expectName("remote url")
	if err != nil {
		return nil, err
	}

	second, err := parser.optionalName()
	if err != nil {
		return nil, err
	}
	if second == "" {
		return AddRemoteStatement{URL: first}, nil
	}
	return AddRemoteStatement{Name: first, URL: second}, nil
}

func (parser *Parser) tableAndWhere() (string, core.Predicate, error) {
	table, err := parser.expectName("table name")
	if err != nil {
		return "", nil, err
	}

	rest := parser.lexer.Remaining()
	if next := rest[0]; next.Type != EOF && !isKeyword(next, "where") {
		return "", nil, fmt.Errorf("%w: expected WHERE after table name, got %q", ErrSyntax, next.Value)
	}

	where, err := ParseWhereClause(rest)
	if err != nil {
		return "", nil, err
	}

	return table, where, nil
}

func (parser *Parser) tableAndURL() (string, string, error) {
	table, err := parser.expectName("table name")
	if err != nil {
		return "", "", err
	}

	url, err := parser.expectName("url")
	if err != nil {
		return "", "", err
	}

	return table, url, parser.expectEnd()
}

func (parser *Parser) expectKeyword(keyword string) error {
	token := parser.lexer.NextToken()
	if !isKeyword(token, keyword) {
		return fmt.Errorf("%w: expected %s, got %q", ErrSyntax, strings.ToUpper(keyword), token.Value)
	}
	return nil
}

func (parser *Parser) expectName(what string) (string, error) {
	token := parser.lexer.NextToken()
	if !isValue(token) {
		return "", fmt.Errorf("%w: missing %s", ErrSyntax, what)
	}
	return token.Value, nil
}

func (parser *Parser) optionalName() (string, error) {
	token := parser.lexer.PeekToken()
	if token.Type == EOF {
		return "", nil
	}
	if !isValue(token) {
		return "", fmt.Errorf("%w: unexpected %q", ErrSyntax, token.Value)
	}
	parser.lexer.NextToken()
	return token.Value, parser.expectEnd()
}

func (parser *Parser) expectEnd() error {
	if token := parser.lexer.PeekToken(); token.Type != EOF {
		return fmt.Errorf("%w: unexpected %q", ErrSyntax, token.Value)
	}
	return nil
}
