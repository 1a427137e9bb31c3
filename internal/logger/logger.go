package logger

import (
	"fmt"
	stdlog "log"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
)

type LogLevel string

const (
	LevelInfo    LogLevel = "INFO"
	LevelSuccess LogLevel = "SUCCESS"
	LevelWarning LogLevel = "WARNING"
	LevelError   LogLevel = "ERROR"
	LevelDebug   LogLevel = "DEBUG"
)

var (
	errorLogger  *stdlog.Logger
	errorLogFile *os.File

	// Separate agent logger so tool-call traffic does not clutter the error log
	agentLogger  *stdlog.Logger
	agentLogFile *os.File
)

// Init sets up the log files under the given data directory.
// Safe to skip (e.g., in tests); logging then goes to the console only.
func Init(dataDir string) {
	if dataDir == "" {
		dataDir = "data"
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		fmt.Printf("Error creating data directory: %v\n", err)
		return
	}

	var err error
	errorLogFile, err = os.OpenFile(filepath.Join(dataDir, "error.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Printf("Error opening error log file: %v\n", err)
	} else {
		errorLogger = stdlog.New(errorLogFile, "", 0)
	}

	agentLogFile, err = os.OpenFile(filepath.Join(dataDir, "agent.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Printf("Error opening agent log file: %v\n", err)
	} else {
		agentLogger = stdlog.New(agentLogFile, "", 0)
	}
}

// CloseLogFiles should be called during shutdown to properly close all log files
func CloseLogFiles() {
	if errorLogFile != nil {
		errorLogFile.Close()
	}

	if agentLogFile != nil {
		agentLogFile.Close()
	}
}

var colorMap = map[string]func(a ...interface{}) string{
	string(LevelInfo):    color.New(color.FgBlue).SprintFunc(),
	string(LevelSuccess): color.New(color.FgGreen).SprintFunc(),
	string(LevelWarning): color.New(color.FgYellow).SprintFunc(),
	string(LevelError):   color.New(color.FgRed).SprintFunc(),
	string(LevelDebug):   color.New(color.FgCyan).SprintFunc(),
}

func getColorFunc(colorName string) func(a ...interface{}) string {
	if fn, ok := colorMap[colorName]; ok {
		return fn
	}
	return fmt.Sprint
}

func logMessage(level LogLevel, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	timestamp := time.Now().Format("2006-01-02 15:04:05")

	colorFunc := getColorFunc(string(level))
	fmt.Println(colorFunc(fmt.Sprintf("[%s] ", level)) + message)

	// Only errors and warnings go to error.log
	if level == LevelError || level == LevelWarning {
		if errorLogger != nil {
			errorLogger.Printf("[%s] %s: %s", level, timestamp, message)
		}
	}
}

func Infof(format string, args ...interface{}) {
	logMessage(LevelInfo, format, args...)
}

func Successf(format string, args ...interface{}) {
	logMessage(LevelSuccess, format, args...)
}

func Warnf(format string, args ...interface{}) {
	logMessage(LevelWarning, format, args...)
}

func Errorf(format string, args ...interface{}) {
	logMessage(LevelError, format, args...)
}

func Debugf(format string, args ...interface{}) {
	logMessage(LevelDebug, format, args...)
}

// AgentDebugf logs agent-related debug messages to agent.log instead of error.log.
// Keeps the error log clean while preserving a detailed trace of model and
// tool-call traffic.
func AgentDebugf(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	timestamp := time.Now().Format("2006-01-02 15:04:05")

	colorFunc := getColorFunc(string(LevelDebug))
	fmt.Println(colorFunc("[AGENT] ") + message)

	if agentLogger != nil {
		agentLogger.Printf("[DEBUG] %s: %s", timestamp, message)
	}
}
