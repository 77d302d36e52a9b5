// Package container reads and writes agent.lock files.
//
// An agent container bundles three layers for one agent identity:
//
//   - credentials: the names of secrets the agent needs, mapped to placeholders
//   - personality: system prompt, tone and other agent settings
//   - memory: arbitrary JSON state the agent carries between runs
//
// Each layer is JSON, encrypted on its own with secrets.Encrypt under the
// master key, so every layer has its own salt and derived key. The file
// itself is JSON:
//
//	{
//	  "version": "1.0",
//	  "layers": {
//	    "credentials": {"data": "...", "salt": "..."},
//	    "personality": {"data": "...", "salt": "..."},
//	    "memory":      {"data": "...", "salt": "..."}
//	  },
//	  "integrity": {"alg": "blake3-keyed", "salt": "...", "mac": "..."}
//	}
//
// # Integrity
//
// Encrypting layers separately does not stop someone who can write the file
// from swapping in a layer taken from another container. Containers written
// by this package therefore carry a keyed BLAKE3 tag over the version and
// all three layers. Files without the tag are still read (reported as
// IntegrityLegacy) unless WithRequireIntegrity is set.
//
// # Writes
//
// Create always replaces the whole file via a temporary file and rename.
// UpdateMemory is a full read-modify-write built on Read and Create.
package container
