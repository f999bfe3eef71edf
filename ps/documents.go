package ps

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/nickyhof/PrimitiveDB/core"
)

const (
	MetadataPath = "metadata.json"
	TablesDir    = "tables"
)

// TablePath returns the repository path of a table's data document.
func TablePath(table string) string {
	return TablesDir + "/" + url.PathEscape(table) + ".json"
}

func marshalDocument(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// MarshalMetadata encodes metadata the way it is stored on disk.
func MarshalMetadata(metadata core.Metadata) ([]byte, error) {
	if metadata == nil {
		metadata = core.Metadata{}
	}
	return marshalDocument(metadata)
}

// MarshalRecords encodes a table's records the way they are stored on disk.
func MarshalRecords(records []core.Record) ([]byte, error) {
	if records == nil {
		records = []core.Record{}
	}
	return marshalDocument(records)
}

// UnmarshalRecords decodes a JSON array of objects. Whole numbers become
// int64 so identifiers and int columns keep their type.
func UnmarshalRecords(data []byte) ([]core.Record, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var records []core.Record
	if err := decoder.Decode(&records); err != nil {
		return nil, err
	}

	for _, record := range records {
		for column, value := range record {
			record[column] = normalizeNumber(value)
		}
	}
	if records == nil {
		records = []core.Record{}
	}
	return records, nil
}

func normalizeNumber(value any) any {
	number, ok := value.(json.Number)
	if !ok {
		return value
	}
	if i, err := number.Int64(); err == nil {
		return i
	}
	if f, err := number.Float64(); err == nil {
		return f
	}
	return number.String()
}

// LoadMetadata reads metadata.json from HEAD. A missing or unreadable
// document is treated as an empty store.
func (p *Persistence) LoadMetadata() core.Metadata {
	p.mu.RLock()
	defer p.mu.RUnlock()

	metadata := core.Metadata{}

	data, err := p.ReadFileDirect(MetadataPath)
	if err != nil {
		return metadata
	}
	if err := json.Unmarshal(data, &metadata); err != nil || metadata == nil {
		return core.Metadata{}
	}
	return metadata
}

// LoadTableData reads a table's records from HEAD. A missing or unreadable
// document is an empty table.
func (p *Persistence) LoadTableData(table string) []core.Record {
	p.mu.RLock()
	defer p.mu.RUnlock()

	data, err := p.ReadFileDirect(TablePath(table))
	if err != nil {
		return []core.Record{}
	}

	records, err := UnmarshalRecords(data)
	if err != nil {
		return []core.Record{}
	}
	return records
}

// SaveMetadata replaces metadata.json.
func (p *Persistence) SaveMetadata(metadata core.Metadata, identity core.Identity, message string) (Transaction, error) {
	data, err := MarshalMetadata(metadata)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to encode metadata: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.WriteFileDirect(MetadataPath, data, identity, message)
}

// SaveTableData replaces a table's data document.
func (p *Persistence) SaveTableData(table string, records []core.Record, identity core.Identity, message string) (Transaction, error) {
	data, err := MarshalRecords(records)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to encode table %s: %w", table, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.WriteFileDirect(TablePath(table), data, identity, message)
}

// DeleteTableData removes a table's data document if it exists.
func (p *Persistence) DeleteTableData(table string, identity core.Identity, message string) (Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.DeletePathDirect([]string{TablePath(table)}, identity, message)
}

// TableDocuments lists the table names that have a data document,
// whether or not metadata knows about them.
func (p *Persistence) TableDocuments() ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entries, err := p.ListEntriesDirect(TablesDir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir || len(entry.Name) <= len(".json") {
			continue
		}
		escaped := entry.Name[:len(entry.Name)-len(".json")]
		name, err := url.PathUnescape(escaped)
		if err != nil {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}
