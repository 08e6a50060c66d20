// Package config loads layered cync settings.
//
// Four layers, later layers winning field by field:
//
//  1. Built-in defaults (the stock extension allow-list and script suffix)
//  2. User file ~/.config/cync/config.yaml
//  3. Project file .cync.jsonc in the watch root (comments allowed)
//  4. CYNC_* environment variables
//
// The project file uses JSONC rather than strict JSON so checked-in
// override files can carry comments, mirroring how devcontainer-style
// tooling treats its config files.
package config
