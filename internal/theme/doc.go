// Package theme styles the lesson row and tracks the system dark mode.
//
// Themes are CSS files resolved from ~/.config/lessons-displayer/themes/
// before the bundled ones, with @import inlined. User themes are
// hot-reloaded. Dark mode comes from a Detector: the XDG desktop portal,
// libadwaita's style manager, or a fixed value from the config.
package theme
