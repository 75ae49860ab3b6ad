// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles holds the ifscenter TUI palette and the lipgloss styles
// built from it.
//
// Colors are adaptive: each has a light and a dark variant and lipgloss
// picks one from the terminal background. The "none" theme strips color
// entirely for terminals or users that want plain text.
//
// Usage:
//
//	theme := styles.NewTheme("auto")
//	fmt.Println(theme.Title.Render("IFScenter"))
//	fmt.Println(styles.RenderError("Invalid email or password"))
package styles
