package planwg

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// recordSchema guards every record load. A file that parses as JSON but
// violates the shape (hand-edited, truncated by a crash, written by a
// different tool) is rejected before it can poison a mutation cycle.
const recordSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["channel_id", "channel_name", "collaborators", "threads"],
  "properties": {
    "channel_id": {"type": "string", "minLength": 1},
    "channel_name": {"type": "string", "minLength": 1},
    "created_by": {"type": "string"},
    "status": {"type": "string"},
    "collaborators": {"type": "array", "items": {"type": "string"}},
    "threads": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["ts", "version", "status", "files", "plan_versions", "feedback"],
        "properties": {
          "owner": {"type": "string"},
          "ts": {"type": "string", "minLength": 1},
          "version": {"type": "integer", "minimum": 0},
          "status": {"enum": ["awaiting_feedback", "approved"]},
          "approved_by": {"type": "string"},
          "files": {"type": "array", "items": {"type": "string"}},
          "plan_versions": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["version", "text", "posted_at"],
              "properties": {
                "version": {"type": "integer", "minimum": 1},
                "text": {"type": "string"},
                "posted_at": {"type": "string"},
                "ts": {"type": "string"}
              }
            }
          },
          "feedback": {"$ref": "#/$defs/feedbackList"},
          "sections": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["heading", "body", "ts", "approved", "feedback"],
              "properties": {
                "heading": {"type": "string"},
                "body": {"type": "string"},
                "ts": {"type": "string", "minLength": 1},
                "approved": {"type": "boolean"},
                "approved_by": {"type": "string"},
                "feedback": {"$ref": "#/$defs/feedbackList"}
              }
            }
          },
          "section_index": {
            "type": "object",
            "additionalProperties": {"type": "integer", "minimum": 0}
          },
          "latest_reply_ts": {"type": "string"},
          "draft": {"type": "string"}
        }
      }
    }
  },
  "$defs": {
    "feedbackList": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["user", "ts", "text", "type", "received_at"],
        "properties": {
          "user": {"type": "string"},
          "ts": {"type": "string", "minLength": 1},
          "text": {"type": "string"},
          "type": {"enum": ["feedback", "revision"]},
          "received_at": {"type": "string"}
        }
      }
    }
  }
}`

var (
	compiledSchemaOnce sync.Once
	compiledSchema     *jsonschema.Schema
	compiledSchemaErr  error
)

func recordSchemaCompiled() (*jsonschema.Schema, error) {
	compiledSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(recordSchema))
		if err != nil {
			compiledSchemaErr = err
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("record.schema.json", doc); err != nil {
			compiledSchemaErr = err
			return
		}
		compiledSchema, compiledSchemaErr = compiler.Compile("record.schema.json")
	})
	return compiledSchema, compiledSchemaErr
}

// encodeRecord serializes a record deterministically: indented JSON with
// sorted object keys, trailing newline. Reconciliation's byte-identical
// idempotence depends on this.
func encodeRecord(rec *ChannelRecord) ([]byte, error) {
	if rec == nil {
		return nil, ErrInvalidInput
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// decodeRecord parses and validates a stored record. Any failure surfaces
// as CorruptRecordError so callers can distinguish "record is damaged"
// from "record does not exist".
func decodeRecord(channel string, data []byte) (*ChannelRecord, error) {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, &CorruptRecordError{Channel: channel, Err: err}
	}
	schema, err := recordSchemaCompiled()
	if err != nil {
		return nil, fmt.Errorf("compile record schema: %w", err)
	}
	if err := schema.Validate(inst); err != nil {
		return nil, &CorruptRecordError{Channel: channel, Err: err}
	}
	var rec ChannelRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &CorruptRecordError{Channel: channel, Err: err}
	}
	if rec.Threads == nil {
		rec.Threads = map[string]*Thread{}
	}
	return &rec, nil
}
