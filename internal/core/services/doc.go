// Package services implements the driving port interfaces.
//
// AskService runs the upload, retrieval and completion pipeline for one
// document and question. SettingsService resolves application settings
// from the config store and the environment.
//
// Services only talk to infrastructure through the driven ports.
package services
