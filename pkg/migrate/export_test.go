package migrate

var SplitStatements = splitStatements
