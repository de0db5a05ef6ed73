package validators

import "go.mongodb.org/mongo-driver/bson"

var AppointmentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"patient_id",
			"doctor_id",
			"scheduled_date",
			"scheduled_time",
			"modality",
			"status",
			"payment",
			"version",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"patient_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"doctor_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"scheduled_date": bson.M{
				"bsonType": "date",
			},

			"scheduled_time": bson.M{
				"bsonType":  "string",
				"minLength": 5,
				"maxLength": 5,
			},

			"modality": bson.M{
				"bsonType": "string",
				"enum": []string{
					"video",
					"phone",
					"in_person",
				},
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"confirmed",
					"completed",
					"rejected",
					"cancelled",
				},
			},

			"payment": bson.M{
				"bsonType": "object",
				"required": []string{"status"},
				"properties": bson.M{
					"method": bson.M{
						"bsonType": "string",
						"enum": []string{
							"card",
							"cash_on_arrival",
						},
					},
					"status": bson.M{
						"bsonType": "string",
						"enum": []string{
							"unpaid",
							"pending",
							"paid",
							"failed",
						},
					},
					"amount": bson.M{
						"bsonType": "long",
						"minimum":  0,
					},
					"settled_at": bson.M{
						"bsonType": "date",
					},
				},
			},

			"reason": bson.M{
				"bsonType":  "string",
				"maxLength": 500,
			},

			"video_notified": bson.M{
				"bsonType": "bool",
			},

			"version": bson.M{
				"bsonType": "long",
				"minimum":  1,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
