package logging

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops if the category is disabled
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debug(format, args...)
}

// Runtime logs to the runtime category
func Runtime(format string, args ...interface{}) {
	Get(CategoryRuntime).Info(format, args...)
}

// RuntimeDebug logs debug to the runtime category
func RuntimeDebug(format string, args ...interface{}) {
	Get(CategoryRuntime).Debug(format, args...)
}

// Workspace logs to the workspace category
func Workspace(format string, args ...interface{}) {
	Get(CategoryWorkspace).Info(format, args...)
}

// WorkspaceDebug logs debug to the workspace category
func WorkspaceDebug(format string, args ...interface{}) {
	Get(CategoryWorkspace).Debug(format, args...)
}

// Prediction logs to the prediction category
func Prediction(format string, args ...interface{}) {
	Get(CategoryPrediction).Info(format, args...)
}

// PredictionDebug logs debug to the prediction category
func PredictionDebug(format string, args ...interface{}) {
	Get(CategoryPrediction).Debug(format, args...)
}

// Metacognition logs to the metacognition category
func Metacognition(format string, args ...interface{}) {
	Get(CategoryMetacognition).Info(format, args...)
}

// MetacognitionDebug logs debug to the metacognition category
func MetacognitionDebug(format string, args ...interface{}) {
	Get(CategoryMetacognition).Debug(format, args...)
}

// Awareness logs to the awareness category
func Awareness(format string, args ...interface{}) {
	Get(CategoryAwareness).Info(format, args...)
}

// AwarenessDebug logs debug to the awareness category
func AwarenessDebug(format string, args ...interface{}) {
	Get(CategoryAwareness).Debug(format, args...)
}

// Desires logs to the desires category
func Desires(format string, args ...interface{}) {
	Get(CategoryDesires).Info(format, args...)
}

// DesiresDebug logs debug to the desires category
func DesiresDebug(format string, args ...interface{}) {
	Get(CategoryDesires).Debug(format, args...)
}

// Brain logs to the brain category
func Brain(format string, args ...interface{}) {
	Get(CategoryBrain).Info(format, args...)
}

// BrainDebug logs debug to the brain category
func BrainDebug(format string, args ...interface{}) {
	Get(CategoryBrain).Debug(format, args...)
}

// Providers logs to the providers category
func Providers(format string, args ...interface{}) {
	Get(CategoryProviders).Info(format, args...)
}

// ProvidersDebug logs debug to the providers category
func ProvidersDebug(format string, args ...interface{}) {
	Get(CategoryProviders).Debug(format, args...)
}

// Speech logs to the speech category
func Speech(format string, args ...interface{}) {
	Get(CategorySpeech).Info(format, args...)
}

// SpeechDebug logs debug to the speech category
func SpeechDebug(format string, args ...interface{}) {
	Get(CategorySpeech).Debug(format, args...)
}

// Errors logs to the errors category
func Errors(format string, args ...interface{}) {
	Get(CategoryErrors).Info(format, args...)
}

// ErrorsDebug logs debug to the errors category
func ErrorsDebug(format string, args ...interface{}) {
	Get(CategoryErrors).Debug(format, args...)
}

// Tools logs to the tools category
func Tools(format string, args ...interface{}) {
	Get(CategoryTools).Info(format, args...)
}

// ToolsDebug logs debug to the tools category
func ToolsDebug(format string, args ...interface{}) {
	Get(CategoryTools).Debug(format, args...)
}

// Skills logs to the skills category
func Skills(format string, args ...interface{}) {
	Get(CategorySkills).Info(format, args...)
}

// SkillsDebug logs debug to the skills category
func SkillsDebug(format string, args ...interface{}) {
	Get(CategorySkills).Debug(format, args...)
}

// Store logs to the store category
func Store(format string, args ...interface{}) {
	Get(CategoryStore).Info(format, args...)
}

// StoreDebug logs debug to the store category
func StoreDebug(format string, args ...interface{}) {
	Get(CategoryStore).Debug(format, args...)
}

// Lifecycle logs to the lifecycle category
func Lifecycle(format string, args ...interface{}) {
	Get(CategoryLifecycle).Info(format, args...)
}

// LifecycleDebug logs debug to the lifecycle category
func LifecycleDebug(format string, args ...interface{}) {
	Get(CategoryLifecycle).Debug(format, args...)
}

// Events logs to the events category
func Events(format string, args ...interface{}) {
	Get(CategoryEvents).Info(format, args...)
}

// EventsDebug logs debug to the events category
func EventsDebug(format string, args ...interface{}) {
	Get(CategoryEvents).Debug(format, args...)
}

// Context logs to the context category
func Context(format string, args ...interface{}) {
	Get(CategoryContext).Info(format, args...)
}

// ContextDebug logs debug to the context category
func ContextDebug(format string, args ...interface{}) {
	Get(CategoryContext).Debug(format, args...)
}

// BootWarn logs a warning to the boot category
func BootWarn(format string, args ...interface{}) {
	Get(CategoryBoot).Warn(format, args...)
}

// BootError logs an error to the boot category
func BootError(format string, args ...interface{}) {
	Get(CategoryBoot).Error(format, args...)
}

// RuntimeWarn logs a warning to the runtime category
func RuntimeWarn(format string, args ...interface{}) {
	Get(CategoryRuntime).Warn(format, args...)
}

// RuntimeError logs an error to the runtime category
func RuntimeError(format string, args ...interface{}) {
	Get(CategoryRuntime).Error(format, args...)
}

// WorkspaceWarn logs a warning to the workspace category
func WorkspaceWarn(format string, args ...interface{}) {
	Get(CategoryWorkspace).Warn(format, args...)
}

// WorkspaceError logs an error to the workspace category
func WorkspaceError(format string, args ...interface{}) {
	Get(CategoryWorkspace).Error(format, args...)
}

// PredictionWarn logs a warning to the prediction category
func PredictionWarn(format string, args ...interface{}) {
	Get(CategoryPrediction).Warn(format, args...)
}

// PredictionError logs an error to the prediction category
func PredictionError(format string, args ...interface{}) {
	Get(CategoryPrediction).Error(format, args...)
}

// MetacognitionWarn logs a warning to the metacognition category
func MetacognitionWarn(format string, args ...interface{}) {
	Get(CategoryMetacognition).Warn(format, args...)
}

// MetacognitionError logs an error to the metacognition category
func MetacognitionError(format string, args ...interface{}) {
	Get(CategoryMetacognition).Error(format, args...)
}

// AwarenessWarn logs a warning to the awareness category
func AwarenessWarn(format string, args ...interface{}) {
	Get(CategoryAwareness).Warn(format, args...)
}

// AwarenessError logs an error to the awareness category
func AwarenessError(format string, args ...interface{}) {
	Get(CategoryAwareness).Error(format, args...)
}

// DesiresWarn logs a warning to the desires category
func DesiresWarn(format string, args ...interface{}) {
	Get(CategoryDesires).Warn(format, args...)
}

// DesiresError logs an error to the desires category
func DesiresError(format string, args ...interface{}) {
	Get(CategoryDesires).Error(format, args...)
}

// BrainWarn logs a warning to the brain category
func BrainWarn(format string, args ...interface{}) {
	Get(CategoryBrain).Warn(format, args...)
}

// BrainError logs an error to the brain category
func BrainError(format string, args ...interface{}) {
	Get(CategoryBrain).Error(format, args...)
}

// ProvidersWarn logs a warning to the providers category
func ProvidersWarn(format string, args ...interface{}) {
	Get(CategoryProviders).Warn(format, args...)
}

// ProvidersError logs an error to the providers category
func ProvidersError(format string, args ...interface{}) {
	Get(CategoryProviders).Error(format, args...)
}

// SpeechWarn logs a warning to the speech category
func SpeechWarn(format string, args ...interface{}) {
	Get(CategorySpeech).Warn(format, args...)
}

// SpeechError logs an error to the speech category
func SpeechError(format string, args ...interface{}) {
	Get(CategorySpeech).Error(format, args...)
}

// ErrorsWarn logs a warning to the errors category
func ErrorsWarn(format string, args ...interface{}) {
	Get(CategoryErrors).Warn(format, args...)
}

// ErrorsError logs an error to the errors category
func ErrorsError(format string, args ...interface{}) {
	Get(CategoryErrors).Error(format, args...)
}

// ToolsWarn logs a warning to the tools category
func ToolsWarn(format string, args ...interface{}) {
	Get(CategoryTools).Warn(format, args...)
}

// ToolsError logs an error to the tools category
func ToolsError(format string, args ...interface{}) {
	Get(CategoryTools).Error(format, args...)
}

// SkillsWarn logs a warning to the skills category
func SkillsWarn(format string, args ...interface{}) {
	Get(CategorySkills).Warn(format, args...)
}

// SkillsError logs an error to the skills category
func SkillsError(format string, args ...interface{}) {
	Get(CategorySkills).Error(format, args...)
}

// StoreWarn logs a warning to the store category
func StoreWarn(format string, args ...interface{}) {
	Get(CategoryStore).Warn(format, args...)
}

// StoreError logs an error to the store category
func StoreError(format string, args ...interface{}) {
	Get(CategoryStore).Error(format, args...)
}

// LifecycleWarn logs a warning to the lifecycle category
func LifecycleWarn(format string, args ...interface{}) {
	Get(CategoryLifecycle).Warn(format, args...)
}

// LifecycleError logs an error to the lifecycle category
func LifecycleError(format string, args ...interface{}) {
	Get(CategoryLifecycle).Error(format, args...)
}

// EventsWarn logs a warning to the events category
func EventsWarn(format string, args ...interface{}) {
	Get(CategoryEvents).Warn(format, args...)
}

// EventsError logs an error to the events category
func EventsError(format string, args ...interface{}) {
	Get(CategoryEvents).Error(format, args...)
}

// ContextWarn logs a warning to the context category
func ContextWarn(format string, args ...interface{}) {
	Get(CategoryContext).Warn(format, args...)
}

// ContextError logs an error to the context category
func ContextError(format string, args ...interface{}) {
	Get(CategoryContext).Error(format, args...)
}
