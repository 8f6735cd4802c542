// Package engine содержит разбор и подстановку переменных для workflow.
//
// Включает:
//   - parser.go   — разбор списка шагов workflow из параметров
//   - template.go — общий контекст и подстановка ${name}
//
// Workflow выполняет шаги строго последовательно, поэтому порядок
// шагов задаётся их позицией в списке.
package engine
