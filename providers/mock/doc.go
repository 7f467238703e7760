// Package mock provides controllable implementations of hecdeploy.Session and
// hecdeploy.Shell for testing purposes.
//
// Session is backed by testify/mock, so expectations are declared with On/Return.
// Shell is a scripted fake of an interactive login shell: it prints a banner, echoes
// every line typed into it and answers echo commands by expanding variables.
//
// Usage:
//
//	s := mock.New()
//	s.On("OpenShell", mock.Anything).Return(mock.NewShell("Welcome\r\n$ ", map[string]string{"HOME": "/home/u"}), nil)
//	// pass 's' to your logic
package mock
