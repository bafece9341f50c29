package application

var RunAnalyzers = runAnalyzers
