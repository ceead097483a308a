package telegram

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"hermes/pkg/logger"
)

// CommandContext contains all data for command execution
type CommandContext struct {
	Ctx     context.Context
	Message *Message
	User    *User
	ChatID  int64
	Command string
	Args    string
	Bot     Bot
}

// CommandHandler is a function that handles a command
type CommandHandler func(ctx *CommandContext) error

// CommandMiddleware wraps command handlers with additional logic
type CommandMiddleware func(next CommandHandler) CommandHandler

// CommandConfig defines a command registration
type CommandConfig struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Handler     CommandHandler
	Middleware  []CommandMiddleware
	Hidden      bool
}

// CommandRegistry manages command registration and routing
type CommandRegistry struct {
	commands   map[string]*CommandConfig
	middleware []CommandMiddleware
	bot        Bot
	log        *logger.Logger
}

// NewCommandRegistry creates a new command registry
func NewCommandRegistry(bot Bot, log *logger.Logger) *CommandRegistry {
	return &CommandRegistry{
		commands:   make(map[string]*CommandConfig),
		middleware: make([]CommandMiddleware, 0),
		bot:        bot,
		log:        log.With("component", "command_registry"),
	}
}

// Register registers a command and its aliases
func (cr *CommandRegistry) Register(config CommandConfig) {
	if config.Name == "" || config.Handler == nil {
		cr.log.Errorw("Cannot register invalid command", "name", config.Name)
		return
	}

	cr.commands[config.Name] = &config
	for _, alias := range config.Aliases {
		cr.commands[alias] = &config
	}

	cr.log.Debugw("Registered command", "name", config.Name, "aliases", config.Aliases)
}

// Use adds global middleware applied to all commands
func (cr *CommandRegistry) Use(middleware CommandMiddleware) {
	cr.middleware = append(cr.middleware, middleware)
}

// HasCommand checks if a command is registered
func (cr *CommandRegistry) HasCommand(command string) bool {
	_, exists := cr.commands[normalize(command)]
	return exists
}

// Commands returns registered commands, primary names only, sorted by
// name so listings are stable
func (cr *CommandRegistry) Commands(includeHidden bool) []*CommandConfig {
	seen := make(map[string]bool)
	commands := make([]*CommandConfig, 0, len(cr.commands))

	for name, config := range cr.commands {
		if name != config.Name || seen[name] {
			continue
		}
		seen[name] = true
		if config.Hidden && !includeHidden {
			continue
		}
		commands = append(commands, config)
	}
	sort.Slice(commands, func(i, j int) bool { return commands[i].Name < commands[j].Name })
	return commands
}

// Handle routes a parsed command message to its handler through the
// middleware chain
func (cr *CommandRegistry) Handle(ctx context.Context, msg *Message) error {
	command := normalize(msg.Command)

	config, exists := cr.commands[command]
	if !exists {
		cr.log.Warnw("Unknown command", "command", command, "chat_id", msg.Chat.ID)
		return cr.bot.SendMessage(msg.Chat.ID,
			fmt.Sprintf("Unknown command: /%s", command))
	}

	cmdCtx := &CommandContext{
		Ctx:     ctx,
		Message: msg,
		User:    msg.From,
		ChatID:  msg.Chat.ID,
		Command: command,
		Args:    msg.Arguments,
		Bot:     cr.bot,
	}

	handler := config.Handler
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		handler = config.Middleware[i](handler)
	}
	for i := len(cr.middleware) - 1; i >= 0; i-- {
		handler = cr.middleware[i](handler)
	}

	if err := handler(cmdCtx); err != nil {
		cr.log.Errorw("Command execution failed",
			"command", command, "chat_id", msg.Chat.ID, "error", err)
		return cr.bot.SendMessage(msg.Chat.ID, "Something went wrong. Please try again.")
	}
	return nil
}

func normalize(command string) string {
	return strings.ToLower(strings.TrimSpace(command))
}
