package document

// schemaJSON is the shape every imported document must match.
const schemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["metadata", "cells"],
  "properties": {
    "metadata": {
      "type": "object",
      "required": ["title", "version"],
      "additionalProperties": false,
      "properties": {
        "title": {"type": "string", "maxLength": 200},
        "author": {"type": "string", "maxLength": 200},
        "version": {"type": "string", "minLength": 1, "maxLength": 64},
        "description": {"type": "string"}
      }
    },
    "cells": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["code", "server", "service"],
        "additionalProperties": false,
        "properties": {
          "id": {"type": "integer"},
          "code": {"type": "string"},
          "dependencies": {"type": "string"},
          "server": {"type": "string", "minLength": 1},
          "service": {"type": "string", "minLength": 1},
          "output": {"type": ["string", "null"]}
        }
      }
    }
  }
}`
