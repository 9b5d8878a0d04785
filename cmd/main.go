package main

import (
	"insulinai-backend/config"
	"insulinai-backend/routes"
	"insulinai-backend/utils"
)

func main() {
	config.InitDB()
	utils.InitS3()
	r := routes.SetupRouter()
	r.Run(":8080")
}
