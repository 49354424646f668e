package shared

var BindValues = bindValues
