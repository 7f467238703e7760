package main

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")). // Pink
			MarginBottom(1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")). // Cyan
			MarginLeft(2)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")) // Red

	stepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")). // Blue
			MarginLeft(2)

	checkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")) // Green
)
